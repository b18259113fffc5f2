// Package handler exposes the storefront and its admin panel as a JSON API
// on gin.
package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/galleria-shop/internal/domain/catalog"
	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/media"
	"github.com/xenking/galleria-shop/internal/messenger"
)

// FileOpener reads stored product images.
type FileOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Config holds non-dependency settings for the Handler.
type Config struct {
	// AdminPassword unlocks the admin endpoints. Admin login is disabled
	// when empty.
	AdminPassword string
	// Currency is the symbol used in formatted prices.
	Currency string
	// MaxUploadBytes caps admin form submissions.
	MaxUploadBytes int64
	// ImageWidth and ImageHeight size the placeholder picture.
	ImageWidth  int
	ImageHeight int
}

// Deps are the services the Handler delegates to.
type Deps struct {
	Ledger    *ledger.Ledger
	Catalog   *catalog.Service
	Orders    order.Repository
	Files     FileOpener
	Messenger messenger.Link
}

// Option configures telemetry for a Handler.
type Option func(h *Handler)

// WithTracerProvider sets the provider used for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) { h.tracer = tp.Tracer("galleria/handler") }
}

// WithMeterProvider sets the provider used for checkout metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(h *Handler) { h.meter = mp.Meter("galleria/handler") }
}

// Handler serves the storefront API.
type Handler struct {
	ledger    *ledger.Ledger
	catalog   *catalog.Service
	orders    order.Repository
	files     FileOpener
	messenger messenger.Link

	currency    string
	maxUpload   int64
	adminHash   []byte
	placeholder []byte

	tracer    trace.Tracer
	meter     metric.Meter
	checkouts metric.Int64Counter
}

// New constructs a Handler.
func New(cfg Config, deps Deps, opts ...Option) (*Handler, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 4 << 20
	}
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		cfg.ImageWidth, cfg.ImageHeight = 600, 400
	}

	h := &Handler{
		ledger:    deps.Ledger,
		catalog:   deps.Catalog,
		orders:    deps.Orders,
		files:     deps.Files,
		messenger: deps.Messenger,
		currency:  cfg.Currency,
		maxUpload: cfg.MaxUploadBytes,
		tracer:    otel.GetTracerProvider().Tracer("galleria/handler"),
		meter:     otel.GetMeterProvider().Meter("galleria/handler"),
	}
	if cfg.AdminPassword != "" {
		sum := sha256.Sum256([]byte(cfg.AdminPassword))
		h.adminHash = sum[:]
	}
	for _, o := range opts {
		o(h)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, media.Placeholder(cfg.ImageWidth, cfg.ImageHeight), imaging.PNG); err != nil {
		return nil, errors.Wrap(err, "encode placeholder")
	}
	h.placeholder = buf.Bytes()

	var err error
	if h.checkouts, err = h.meter.Int64Counter("shop.checkouts",
		metric.WithDescription("Checkout attempts, by result"),
	); err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	return h, nil
}

// Register mounts all routes on r. login is applied in front of the admin
// login endpoint, typically a stricter rate limit.
func (h *Handler) Register(r gin.IRouter, login ...gin.HandlerFunc) {
	r.GET("/uploads/:name", h.serveUpload)
	r.GET("/_placeholder.png", h.servePlaceholder)

	api := r.Group("/api")
	api.GET("/products", h.listProducts)
	api.GET("/products/:slug", h.getProduct)
	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addToCart)
	api.DELETE("/cart/items/:id", h.removeFromCart)
	api.POST("/checkout", h.checkout)

	api.POST("/admin/login", append(login, h.login)...)
	api.POST("/admin/logout", h.logout)

	admin := api.Group("/admin", h.requireAdmin)
	admin.GET("/products", h.adminListProducts)
	admin.POST("/products", h.limitBody, h.createProduct)
	admin.POST("/products/:id", h.limitBody, h.updateProduct)
	admin.GET("/orders", h.listOrders)
}
