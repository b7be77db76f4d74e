package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filippo.io/csrf"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/linkstash/internal/api"
	"github.com/wolfeidau/linkstash/internal/auth"
	"github.com/wolfeidau/linkstash/internal/client"
	httpmiddleware "github.com/wolfeidau/linkstash/internal/http"
	"github.com/wolfeidau/linkstash/internal/logger"
	"github.com/wolfeidau/linkstash/internal/login"
	"github.com/wolfeidau/linkstash/internal/pages"
	"github.com/wolfeidau/linkstash/internal/secrets"
	"github.com/wolfeidau/linkstash/internal/session"
	"github.com/wolfeidau/linkstash/internal/store"
	memorystore "github.com/wolfeidau/linkstash/internal/store/memory"
	postgresstore "github.com/wolfeidau/linkstash/internal/store/postgres"
	"github.com/wolfeidau/linkstash/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:3030" env:"LINKSTASH_LISTEN"`
	Cert   string `help:"path to TLS cert file" default:"" env:"LINKSTASH_TLS_CERT"`
	Key    string `help:"path to TLS key file" default:"" env:"LINKSTASH_TLS_KEY"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3030" env:"LINKSTASH_CORS_ORIGINS"`

	// OpenID Connect configuration
	OIDC OIDCFlags `embed:"" prefix:"oidc-"`

	SecureCookies bool `help:"set the Secure attribute on cookies (enable behind TLS)" default:"false" env:"LINKSTASH_SECURE_COOKIES"`
	RateLimit     int  `help:"requests per minute per client on login and API routes" default:"30" env:"LINKSTASH_RATE_LIMIT"`

	// Addresses or CIDR ranges whose X-Forwarded-For / X-Real-IP headers are believed
	TrustedProxies []string `help:"trusted reverse proxy addresses or CIDR ranges" env:"LINKSTASH_TRUSTED_PROXIES"`

	// Telemetry
	Tracing     bool    `help:"enable tracing and metrics export" default:"false" env:"LINKSTASH_TRACING"`
	SampleRatio float64 `help:"fraction of traces sampled" default:"1" env:"LINKSTASH_TRACE_SAMPLE_RATIO"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"LINKSTASH_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type OIDCFlags struct {
	ClientID        string        `name:"client-id" help:"OpenID Connect client ID" env:"LINKSTASH_OIDC_CLIENT_ID"`
	ClientSecret    string        `name:"client-secret" help:"OpenID Connect client secret" env:"LINKSTASH_OIDC_CLIENT_SECRET"`
	Issuer          string        `help:"OpenID Connect issuer URL" env:"LINKSTASH_OIDC_ISSUER"`
	Redirect        string        `help:"redirect URL registered with the provider" env:"LINKSTASH_OIDC_REDIRECT"`
	ProviderTimeout time.Duration `help:"timeout for each provider round-trip" default:"10s" env:"LINKSTASH_OIDC_PROVIDER_TIMEOUT"`
}

func (o *OIDCFlags) Validate() error {
	if o.ClientID == "" || o.ClientSecret == "" {
		return errors.New("OIDC client ID and secret are required (--oidc-client-id, --oidc-client-secret)")
	}
	if o.Issuer == "" {
		return errors.New("OIDC issuer is required (--oidc-issuer or LINKSTASH_OIDC_ISSUER)")
	}
	if o.Redirect == "" {
		return errors.New("OIDC redirect URL is required (--oidc-redirect or LINKSTASH_OIDC_REDIRECT)")
	}
	return nil
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	QueryTimeout time.Duration `help:"maximum time a single query may run" default:"10s"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"LINKSTASH_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

type stores struct {
	apiKeys store.APIKeyStore
	links   store.LinkStore
	groups  store.GroupStore
	close   func()
}

func (c *ServerCmd) Run(globals *Globals) error {
	reqLogger, err := logger.Setup(globals.Debug, globals.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	if err := c.OIDC.Validate(); err != nil {
		return fmt.Errorf("failed to validate oidc flags: %w", err)
	}

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Float64("sample_ratio", c.SampleRatio).Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, telemetry.Config{
			ServiceName: "linkstash",
			Version:     globals.Version,
			SampleRatio: c.SampleRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	st, err := c.createStores(ctx)
	if err != nil {
		return err
	}
	defer st.close()

	sessions := session.NewTable()
	if err := telemetry.RegisterSessionGauge(sessions); err != nil {
		log.Warn().Err(err).Msg("Failed to register session gauge")
	}

	gen := secrets.NewGenerator()

	oidcLogin, err := login.NewOIDC(ctx, login.Config{
		ClientID:        c.OIDC.ClientID,
		ClientSecret:    c.OIDC.ClientSecret,
		Issuer:          c.OIDC.Issuer,
		RedirectURL:     c.OIDC.Redirect,
		ProviderTimeout: c.OIDC.ProviderTimeout,
		SecureCookies:   c.SecureCookies,
		HTTPClient:      client.NewProviderHTTPClient(c.OIDC.ProviderTimeout),
	}, sessions, gen)
	if err != nil {
		return fmt.Errorf("failed to initialize OIDC login: %w", err)
	}

	log.Info().Str("issuer", c.OIDC.Issuer).Msg("OIDC provider discovered")

	verifier := auth.NewVerifier(sessions, st.apiKeys)

	pagesHandler, err := pages.NewHandler(st.links, st.apiKeys, gen)
	if err != nil {
		return fmt.Errorf("failed to load page templates: %w", err)
	}
	apiHandler := api.NewHandler(st.links, st.groups)

	clientIPs, err := httpmiddleware.NewClientIPResolver(c.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}

	limitCfg := httpmiddleware.DefaultRateLimitConfig()
	if c.RateLimit > 0 {
		limitCfg.Rate = rate.Limit(float64(c.RateLimit) / 60.0)
	}
	limiter := httpmiddleware.NewRateLimiter(limitCfg)
	defer limiter.Stop()

	// CSRF protection for HTML pages (not applied to API routes)
	protection := csrf.New()

	r := chi.NewRouter()
	r.Use(httpmiddleware.ClientIPMiddleware(clientIPs))
	r.Use(logger.Requests(reqLogger))

	r.Get("/healthz", api.Health)

	// Login routes
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Get("/oauth2/login/oidc", oidcLogin.LoginHandler)
		r.Get("/auth/oauth2/code/oidc", oidcLogin.CallbackHandler)
		r.Get("/oauth2/logout/oidc", oidcLogin.LogoutHandler)
		r.Post("/oauth2/logout/oidc", oidcLogin.LogoutHandler)
	})

	// API routes get CORS, HTML routes get CSRF
	r.With(withCORS(c.CORSOrigins), limiter.Middleware()).Mount("/api", apiHandler.Routes(verifier))
	r.With(protection.Handler).Mount("/", pagesHandler.Routes(verifier))

	var handler http.Handler = gzhttp.GzipHandler(r)
	if c.Tracing {
		handler = otelhttp.NewHandler(handler, "linkstash")
	}

	return serve(ctx, configureHTTPServer(c.Listen, handler), c.Cert, c.Key)
}

// createStores builds the credential and resource stores for the configured store type.
func (c *ServerCmd) createStores(ctx context.Context) (*stores, error) {
	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return nil, fmt.Errorf("failed to validate postgres flags: %w", err)
		}

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(c.PostgresStore.ConnString); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create store pool: %w", err)
		}

		pg, err := postgresstore.NewStores(pool, postgresstore.StoreConfig{QueryTimeout: c.PostgresStore.QueryTimeout})
		if err != nil {
			pool.Close()
			return nil, err
		}

		log.Info().Msg("Using PostgreSQL stores")
		return &stores{apiKeys: pg.APIKeys, links: pg.Links, groups: pg.Groups, close: pool.Close}, nil

	default:
		log.Info().Msg("Using in-memory stores")
		return &stores{
			apiKeys: memorystore.NewAPIKeyStore(),
			links:   memorystore.NewLinkStore(),
			groups:  memorystore.NewGroupStore(),
			close:   func() {},
		}, nil
	}
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, cert, key string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if cert != "" || key != "" {
			if cert == "" || key == "" {
				return errors.New("both TLS certificate and key are required (--cert and --key)")
			}
			log.Info().Str("addr", srv.Addr).Msg("Starting HTTPS server")
			err = srv.ListenAndServeTLS(cert, key)
		} else {
			log.Warn().Str("addr", srv.Addr).Msg("Starting HTTP server without TLS")
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// withCORS adds CORS support to the API routes.
func withCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true, // Required for cookie-based authentication
	})
	return middleware.Handler
}
