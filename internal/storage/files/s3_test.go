package files

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	headErr error
}

func newMockS3() *mockS3 {
	return &mockS3{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = data
	m.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.headErr != nil {
		return nil, m.headErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (m *mockS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	store := NewS3(client, "galleria", "uploads/")

	// Non-seekable reader is buffered before upload.
	require.NoError(t, store.Put(ctx, "a.jpg", io.MultiReader(strings.NewReader("jpeg"))))
	assert.Equal(t, []byte("jpeg"), client.objects["uploads/a.jpg"])
	assert.Equal(t, "image/jpeg", client.types["uploads/a.jpg"])

	err := store.Put(ctx, "a.jpg", strings.NewReader("other"))
	assert.True(t, errors.Is(err, ErrExists))

	rc, err := store.Open(ctx, "a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, store.Delete(ctx, "a.jpg"))
	_, err = store.Open(ctx, "a.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	// Missing keys delete cleanly.
	assert.NoError(t, store.Delete(ctx, "a.jpg"))
}

func TestS3_Errors(t *testing.T) {
	ctx := context.Background()
	client := newMockS3()
	client.headErr = errors.New("access denied")
	store := NewS3(client, "galleria", "")

	err := store.Put(ctx, "a.jpg", strings.NewReader("x"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrExists))
	assert.Empty(t, client.objects)

	assert.True(t, errors.Is(store.Put(ctx, "../a.jpg", strings.NewReader("x")), ErrInvalidName))
}
