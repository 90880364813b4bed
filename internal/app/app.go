package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/config"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/i18n"
	"github.com/MrSnakeDoc/linkdash/internal/index"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/metrics"
	"github.com/MrSnakeDoc/linkdash/internal/redis"
	"github.com/MrSnakeDoc/linkdash/internal/scheduler"
	"github.com/MrSnakeDoc/linkdash/internal/session"
	"github.com/MrSnakeDoc/linkdash/internal/storage"
	redisstore "github.com/MrSnakeDoc/linkdash/internal/store/redis"
	"github.com/MrSnakeDoc/linkdash/internal/utils"
	"github.com/MrSnakeDoc/linkdash/internal/version"
	"github.com/MrSnakeDoc/linkdash/internal/web"
)

// backingStore holds sessions and cached lists: Redis when configured,
// process memory otherwise.
type backingStore interface {
	session.Store
	listview.Cache
	deps.Pinger
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.LocaleReloader
	janitor     *scheduler.Janitor
	unsubscribe func()
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	m := metrics.New()

	// Sessions and list cache
	var (
		store       backingStore
		redisClient *goredis.Client
		janitor     *scheduler.Janitor
	)
	if cfg.UseRedis() {
		// fail fast: a configured but unreachable Redis is a deployment error
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		store = redisstore.NewStore(client)
	} else {
		loggerClient.Info("no redis address configured, keeping sessions and lists in memory")
		mem := index.NewMemoryIndex()
		store = mem
		janitor = scheduler.NewJanitor(mem, m, loggerClient, cfg.JanitorInterval)
	}

	// Upload storage
	var (
		files     storage.Store
		uploadDir string
	)
	switch cfg.UploadBackend {
	case "s3":
		s3Store, err := storage.NewS3(context.Background(), storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			loggerClient.Errorf("Failed to initialise S3 storage: %v", err)
			os.Exit(1)
		}
		files = s3Store
	default:
		local, err := storage.NewLocal(cfg.UploadDir)
		if err != nil {
			loggerClient.Errorf("Failed to initialise upload directory: %v", err)
			os.Exit(1)
		}
		files = local
		uploadDir = local.Dir()
	}
	loggerClient.Info("upload storage ready", logger.String("backend", files.Name()))

	api, err := backend.New(backend.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		AuthScheme: cfg.APIAuthScheme,
		Observer:   m,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to create backend client: %v", err)
		os.Exit(1)
	}

	catalog := i18n.NewCatalog(cfg.DefaultLanguage, cfg.LocalesDir, loggerClient)
	renderer, err := web.New(catalog, cfg.PublicLinkBase)
	if err != nil {
		loggerClient.Errorf("Failed to parse templates: %v", err)
		os.Exit(1)
	}

	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.SessionCookie,
		TTL:        cfg.SessionTTL,
		Secure:     cfg.SecureCookie,
	}, loggerClient)
	unsubscribe := sessions.Subscribe(func(c session.Change) {
		m.ObserveSession(string(c.Event))
		if c.Event == session.EventLogin && c.Admin != nil {
			loggerClient.Info("admin session opened",
				logger.String("username", c.Admin.Username))
		}
	})

	lists := listview.NewRegistry(store, listview.Options{
		TTL:           cfg.CacheTTL,
		Invalidations: listview.DefaultInvalidations,
		Observer:      m,
	}, loggerClient)

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewLocaleReloader(catalog, loggerClient, cfg.LocaleReloadInterval, reloadTrigger)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		TimeNow:        time.Now,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		Backend:        api,
		Sessions:       sessions,
		Lists:          lists,
		Submitter:      form.NewSubmitter(files, loggerClient),
		Catalog:        catalog,
		Renderer:       renderer,
		Metrics:        m,
		Store:          store,
		Files:          files,
		UploadDir:      uploadDir,
		PublicLinkBase: cfg.PublicLinkBase,
		ReloadTrigger:  reloadTrigger,
		LoginBurst:     cfg.LoginBurst,
		LoginRefill:    cfg.LoginRefillPerMn,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		reloader:    reloader,
		janitor:     janitor,
		unsubscribe: unsubscribe,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Linkdash v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Linkdash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load translations and keep them fresh
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start locale reloader: %w", err)
	}
	a.logger.Info("locale reloader started",
		logger.Duration("interval", a.cfg.LocaleReloadInterval),
		logger.String("override_dir", a.cfg.LocalesDir))

	if a.janitor != nil {
		if err := a.janitor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start janitor: %w", err)
		}
		a.logger.Info("janitor started",
			logger.Duration("interval", a.cfg.JanitorInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	if a.janitor != nil {
		a.janitor.Stop()
	}
	a.unsubscribe()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		utils.MustClose(a.redisClient, a.logger, "redis")
	}

	a.logger.Info("✅ Linkdash stopped cleanly")
	return nil
}
