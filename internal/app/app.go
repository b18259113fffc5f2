package app

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/galleria-shop/db"
	"github.com/xenking/galleria-shop/internal/domain/catalog"
	"github.com/xenking/galleria-shop/internal/domain/ledger"
	"github.com/xenking/galleria-shop/internal/domain/order"
	"github.com/xenking/galleria-shop/internal/domain/product"
	"github.com/xenking/galleria-shop/internal/handler"
	"github.com/xenking/galleria-shop/internal/media"
	"github.com/xenking/galleria-shop/internal/messenger"
	"github.com/xenking/galleria-shop/internal/storage/files"
	"github.com/xenking/galleria-shop/internal/storage/memory"
	"github.com/xenking/galleria-shop/internal/storage/postgres"
	"github.com/xenking/galleria-shop/pkg/health"
	"github.com/xenking/galleria-shop/pkg/httpmiddleware"
)

// stores groups the persistence ports used by the domain services.
type stores struct {
	products product.Repository
	orders   order.Repository
	tx       ledger.Transactor
	close    func()
}

// fileStore is what both the normalizer and the handler need from image
// storage.
type fileStore interface {
	media.FileStore
	handler.FileOpener
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineLimit(10000))

	st, err := openStores(ctx, lg, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer st.close()

	fs, err := openFiles(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Seed {
		if err := seedCatalog(ctx, lg, st.products); err != nil {
			return err
		}
	}

	normalizer, err := media.NewNormalizer(fs, media.Config{
		Width:   cfg.Image.Width,
		Height:  cfg.Image.Height,
		Quality: cfg.Image.Quality,
	},
		media.WithTracerProvider(m.TracerProvider()),
		media.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create normalizer")
	}

	h, err := handler.New(handler.Config{
		AdminPassword:  cfg.AdminPassword,
		Currency:       cfg.Shop.Currency,
		MaxUploadBytes: cfg.Image.MaxUploadBytes,
		ImageWidth:     cfg.Image.Width,
		ImageHeight:    cfg.Image.Height,
	}, handler.Deps{
		Ledger:  ledger.New(st.products, st.tx, ledger.Config{Currency: cfg.Shop.Currency}),
		Catalog: catalog.NewService(st.products, normalizer, fs),
		Orders:  st.orders,
		Files:   fs,
		Messenger: messenger.Link{
			Host:     cfg.Messenger.Host,
			PageID:   cfg.Messenger.PageID,
			ShopName: cfg.Shop.Name,
			Currency: cfg.Shop.Currency,
		},
	},
		handler.WithTracerProvider(m.TracerProvider()),
		handler.WithMeterProvider(m.MeterProvider()),
	)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}
	if cfg.AdminPassword == "" {
		lg.Warn("Admin password is not set, admin login is disabled")
	}

	secret, err := sessionSecret(lg, cfg.SessionSecret)
	if err != nil {
		return err
	}

	limiter := httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	loginLimiter := httpmiddleware.NewLimiter(cfg.LoginRateLimit.Max, cfg.LoginRateLimit.Window)

	instrument, err := httpmiddleware.Instrument(m.MeterProvider().Meter("galleria/http"))
	if err != nil {
		return errors.Wrap(err, "create http metrics")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.RequestID(),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
		instrument,
		httpmiddleware.RateLimit(limiter),
		handler.Sessions(handler.SessionConfig{
			Secret: secret,
			Secure: cfg.SecureCookies,
		}),
	)
	h.Register(engine, httpmiddleware.RateLimit(loginLimiter))

	// Mux: probes stay outside the rate limit and session middleware.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.Live)
	mux.HandleFunc("/readyz", healthSvc.Readyz)
	mux.Handle("/", engine)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(mux, "storefront",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthSvc.Run(gctx, 10*time.Second) })
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return loginLimiter.Run(gctx) })
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// openStores connects to PostgreSQL when a database URL is configured and
// falls back to the in-memory store otherwise.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, healthSvc *health.Health) (*stores, error) {
	if cfg.DatabaseURL == "" {
		lg.Warn("Database URL is not set, using in-memory store")
		mem := memory.New()
		return &stores{
			products: mem,
			orders:   mem.Orders(),
			tx:       mem,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	healthSvc.AddReadiness("postgres", 5*time.Second, health.Ping(pool))

	return &stores{
		products: postgres.NewProductRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		tx:       postgres.NewTransactor(pool),
		close:    pool.Close,
	}, nil
}

func openFiles(ctx context.Context, cfg *Config) (fileStore, error) {
	switch cfg.Storage.Driver {
	case StorageS3:
		client, err := files.NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, errors.Wrap(err, "create s3 client")
		}
		return files.NewS3(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix), nil
	default:
		local, err := files.NewLocal(cfg.Storage.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open upload dir")
		}
		return local, nil
	}
}

func seedCatalog(ctx context.Context, lg *zap.Logger, repo product.Repository) error {
	products, err := catalog.ParseSeed(db.Products)
	if err != nil {
		return errors.Wrap(err, "parse seed")
	}
	n, err := catalog.Seed(ctx, repo, products)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if n > 0 {
		lg.Info("Seeded sample catalog", zap.Int("products", n))
	}
	return nil
}

// sessionSecret returns the configured cookie key, or a random one that
// invalidates every session on restart.
func sessionSecret(lg *zap.Logger, configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	lg.Warn("Session secret is not set, sessions will not survive a restart")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "generate session secret")
	}
	return key, nil
}
