// Package cart defines the per-session shopping cart.
//
// A Cart is owned by the client's session and passed explicitly to every
// operation that reads or mutates it; nothing in this package is global.
package cart

import (
	"slices"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Cart maps product IDs to requested quantities. Quantities are always
// positive; a zero or negative quantity removes the entry.
type Cart map[int64]int

// New returns an empty cart.
func New() Cart {
	return make(Cart)
}

// Add merges qty units of the product into the cart.
func (c Cart) Add(productID int64, qty int) {
	if qty <= 0 {
		return
	}
	c[productID] += qty
}

// Remove deletes the product's entry, if any.
func (c Cart) Remove(productID int64) {
	delete(c, productID)
}

// Clear empties the cart in place.
func (c Cart) Clear() {
	clear(c)
}

// Empty reports whether the cart has no entries.
func (c Cart) Empty() bool {
	return len(c) == 0
}

// Count returns the total number of units across all entries.
func (c Cart) Count() int {
	n := 0
	for _, qty := range c {
		n += qty
	}
	return n
}

// IDs returns the product IDs in ascending order.
func (c Cart) IDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Encode writes the cart as a JSON object keyed by product ID, e.g.
// {"1":2,"4":1}. Keys are written in ascending order.
func (c Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	for _, id := range c.IDs() {
		e.FieldStart(strconv.FormatInt(id, 10))
		e.Int(c[id])
	}
	e.ObjEnd()
}

// Bytes returns the JSON encoding of the cart.
func (c Cart) Bytes() []byte {
	var e jx.Encoder
	c.Encode(&e)
	return e.Bytes()
}

// Decode parses a cart previously produced by Bytes. Entries with a
// non-positive quantity are dropped. Empty input yields an empty cart.
func Decode(data []byte) (Cart, error) {
	c := New()
	if len(data) == 0 {
		return c, nil
	}
	err := jx.DecodeBytes(data).ObjBytes(func(d *jx.Decoder, key []byte) error {
		id, err := strconv.ParseInt(string(key), 10, 64)
		if err != nil {
			return errors.Wrapf(err, "product id %q", key)
		}
		qty, err := d.Int()
		if err != nil {
			return errors.Wrapf(err, "quantity for %d", id)
		}
		c.Add(id, qty)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return c, nil
}
