// Package files stores normalized product images on local disk or in an
// S3-compatible bucket.
package files

import (
	"mime"
	"path"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no file exists under the requested name.
	ErrNotFound = errors.New("file not found")
	// ErrExists is returned by Put when the name is already taken.
	ErrExists = errors.New("file already exists")
	// ErrInvalidName is returned for names that are empty, hidden or contain
	// path elements.
	ErrInvalidName = errors.New("invalid file name")
)

// ValidName reports whether name is a plain file name safe to use as a key.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && path.Base(name) == name
}

// ContentType guesses the MIME type from the name's extension.
func ContentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
