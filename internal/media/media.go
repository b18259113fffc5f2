// Package media normalizes uploaded product pictures to a uniform size and
// format.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	// WebP decoding for image.Decode.
	_ "golang.org/x/image/webp"
)

var (
	// ErrInvalidImageFormat is returned for files whose name does not carry an
	// allowed extension or whose content cannot be decoded as an image.
	ErrInvalidImageFormat = errors.New("invalid image format")
	// ErrImageTooLarge is returned when the decoded image would exceed
	// Config.MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

var allowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// AllowedExtension returns the lowercased extension of filename and whether
// it is one of jpg, jpeg, png or webp. Only the name is inspected.
func AllowedExtension(filename string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	_, ok := allowedExtensions[ext]
	return ext, ok
}

// FileStore persists normalized images under flat file names.
type FileStore interface {
	// Put writes r under name. It fails if name already exists.
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// Config sets the output geometry and quality.
type Config struct {
	Width     int
	Height    int
	Quality   int
	MaxPixels int
}

func (c *Config) setDefaults() {
	if c.Width <= 0 {
		c.Width = 600
	}
	if c.Height <= 0 {
		c.Height = 400
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = 85
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = 40_000_000
	}
}

// Option configures a Normalizer.
type Option func(n *Normalizer)

// WithTracerProvider sets the provider used for normalization spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *Normalizer) { n.tracer = tp.Tracer("galleria/media") }
}

// WithMeterProvider sets the provider used for the normalized images counter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(n *Normalizer) { n.meter = mp.Meter("galleria/media") }
}

// Normalizer converts uploads into fixed-size JPEG files.
type Normalizer struct {
	store  FileStore
	cfg    Config
	tracer trace.Tracer
	meter  metric.Meter
	images metric.Int64Counter
	name   func() string
}

// NewNormalizer creates a Normalizer writing to store.
func NewNormalizer(store FileStore, cfg Config, opts ...Option) (*Normalizer, error) {
	cfg.setDefaults()
	n := &Normalizer{
		store:  store,
		cfg:    cfg,
		tracer: otel.GetTracerProvider().Tracer("galleria/media"),
		meter:  otel.GetMeterProvider().Meter("galleria/media"),
		name: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "") + ".jpg"
		},
	}
	for _, o := range opts {
		o(n)
	}

	var err error
	if n.images, err = n.meter.Int64Counter("media.images.normalized",
		metric.WithDescription("Uploaded images processed, by result"),
	); err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return n, nil
}

// Size returns the output width and height.
func (n *Normalizer) Size() (int, int) {
	return n.cfg.Width, n.cfg.Height
}

// Normalize decodes the upload, cover-crops it to the configured size,
// encodes it as JPEG and stores it under a fresh random name, which is
// returned. Stored files are never overwritten.
func (n *Normalizer) Normalize(ctx context.Context, filename string, r io.Reader) (_ string, rerr error) {
	ctx, span := n.tracer.Start(ctx, "media.Normalize")
	defer span.End()
	defer func() {
		result := "ok"
		if rerr != nil {
			result = "error"
			span.RecordError(rerr)
		}
		n.images.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}()

	if _, ok := AllowedExtension(filename); !ok {
		return "", errors.Wrapf(ErrInvalidImageFormat, "file %q", filename)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "read upload")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImageFormat, err)
	}
	if cfg.Width*cfg.Height > n.cfg.MaxPixels {
		return "", errors.Wrapf(ErrImageTooLarge, "%dx%d", cfg.Width, cfg.Height)
	}

	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImageFormat, err)
	}

	dst := CoverCrop(src, n.cfg.Width, n.cfg.Height)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(n.cfg.Quality)); err != nil {
		return "", errors.Wrap(err, "encode jpeg")
	}

	name := n.name()
	if err := n.store.Put(ctx, name, &buf); err != nil {
		return "", errors.Wrapf(err, "store %s", name)
	}
	span.SetAttributes(attribute.String("media.name", name))
	return name, nil
}
