package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddAccumulates(t *testing.T) {
	c := New()
	c.Add(1, 2)
	c.Add(1, 3)
	c.Add(2, 1)
	c.Add(3, 0)
	c.Add(3, -4)

	assert.Equal(t, 5, c[1])
	assert.Equal(t, 1, c[2])
	assert.NotContains(t, c, int64(3))
	assert.Equal(t, 6, c.Count())
	assert.Equal(t, []int64{1, 2}, c.IDs())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := Cart{1: 1, 2: 2}
	c.Remove(1)
	c.Remove(42)
	assert.Equal(t, Cart{2: 2}, c)

	alias := c
	c.Clear()
	assert.True(t, alias.Empty(), "Clear must empty the shared map")
}

func TestCart_Bytes(t *testing.T) {
	c := Cart{10: 1, 2: 3}
	assert.Equal(t, `{"2":3,"10":1}`, string(c.Bytes()))
	assert.Equal(t, `{}`, string(New().Bytes()))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Cart
		wantErr bool
	}{
		{name: "empty input", in: "", want: Cart{}},
		{name: "empty object", in: "{}", want: Cart{}},
		{name: "entries", in: `{"1":2,"5":1}`, want: Cart{1: 2, 5: 1}},
		{name: "non-positive dropped", in: `{"1":0,"2":-1,"3":4}`, want: Cart{3: 4}},
		{name: "bad key", in: `{"abc":1}`, wantErr: true},
		{name: "bad quantity", in: `{"1":"two"}`, wantErr: true},
		{name: "not an object", in: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
