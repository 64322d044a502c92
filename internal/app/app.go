package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/auth"
	"github.com/veritas-stock/stockd/internal/catalog"
	"github.com/veritas-stock/stockd/internal/config"
	"github.com/veritas-stock/stockd/internal/db"
	apphttp "github.com/veritas-stock/stockd/internal/http"
	"github.com/veritas-stock/stockd/internal/http/api/admin"
	"github.com/veritas-stock/stockd/internal/http/api/front"
	"github.com/veritas-stock/stockd/internal/logging"
	"github.com/veritas-stock/stockd/internal/models"
	"github.com/veritas-stock/stockd/internal/ratelimit"
	"github.com/veritas-stock/stockd/internal/security"
	"github.com/veritas-stock/stockd/internal/store"
	"github.com/veritas-stock/stockd/internal/util"
	"gorm.io/gorm"
)

const (
	// janitorInterval is how often expired in-memory sessions and rate buckets are purged.
	janitorInterval = time.Minute
	// rateLimitKeyTTL bounds the lifetime of Redis rate limit keys; it exceeds the longest window.
	rateLimitKeyTTL = 25 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn.WithContext(ctx)); errMigrate != nil {
		return errMigrate
	}
	log.Infof("database migrated (config=%s)", configPath)
	return nil
}

// RunServer boots the catalog API and blocks until ctx is cancelled.
func RunServer(ctx context.Context, appCfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(appCfg.ConfigPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	if cfg.JWT.Ephemeral {
		log.Warn("no signing secret configured; generated a random one, sessions will not survive a restart")
	}

	conn, err := db.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var rdb redis.UniversalClient
	if cfg.UsesRedis() {
		rdb, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	if _, errAdmin := EnsureDefaultAdmin(ctx, store.NewAdminStore(conn), cfg.Admin); errAdmin != nil {
		return errAdmin
	}

	rt := newRuntime(cfg, conn, rdb)
	rt.start(ctx)

	engine, err := rt.router(cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errServe := make(chan error, 1)
	go func() {
		log.Infof("starting stockd on %s (config=%s env=%s)", server.Addr, configPath, cfg.Server.Env)
		if errListen := server.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			errServe <- errListen
		}
		close(errServe)
	}()

	select {
	case errListen := <-errServe:
		return errListen
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	log.Info("server stopped")
	return nil
}

// EnsureDefaultAdmin provisions the configured admin account when its username is free.
// A TOTP secret is generated and logged when none is configured. It reports whether a row was created.
func EnsureDefaultAdmin(ctx context.Context, admins *store.AdminStore, cfg config.AdminConfig) (bool, error) {
	if cfg.Username == "" || cfg.Password == "" {
		log.Debug("default admin not configured")
		return false, nil
	}

	secret := cfg.TOTPSecret
	generated := false
	if secret == "" {
		key, errKey := security.GenerateTOTPKey(cfg.Issuer, cfg.Username)
		if errKey != nil {
			return false, fmt.Errorf("default admin: %w", errKey)
		}
		secret = key.Secret
		generated = true
	}

	hash, errHash := security.HashPassword(cfg.Password)
	if errHash != nil {
		return false, fmt.Errorf("default admin: hash password: %w", errHash)
	}
	created, errCreate := admins.CreateIfMissing(ctx, &models.Admin{
		Username:   cfg.Username,
		Password:   hash,
		TOTPSecret: secret,
		Active:     true,
	})
	if errCreate != nil {
		return false, fmt.Errorf("default admin: %w", errCreate)
	}
	if !created {
		log.WithField("username", cfg.Username).Debug("default admin already exists")
		return false, nil
	}

	entry := log.WithField("username", cfg.Username)
	if generated {
		entry.WithFields(log.Fields{
			"totp_secret": secret,
			"otpauth_url": security.TOTPURL(cfg.Issuer, cfg.Username, secret),
		}).Warn("default admin created with a generated TOTP secret; enroll it in an authenticator app")
	} else {
		entry.Info("default admin created")
	}
	return true, nil
}

// runtime holds the wired components behind the HTTP surface.
type runtime struct {
	conn      *gorm.DB
	redis     redis.UniversalClient
	sequencer *auth.Sequencer
	cookie    apphttp.SessionCookie
	limiter   *ratelimit.Limiter
	catalog   *catalog.Service
	sweeper   *catalog.BackgroundSweeper
	sessions  *auth.MemorySessionStore
	buckets   *ratelimit.MemoryStore
}

// newRuntime wires stores, the login sequencer, the limiter and the catalog from cfg.
// rdb must be set when cfg selects a Redis backend.
func newRuntime(cfg config.Config, conn *gorm.DB, rdb redis.UniversalClient) *runtime {
	rt := &runtime{conn: conn, redis: rdb}

	var sessions auth.SessionStore
	if cfg.Session.Backend == config.BackendRedis {
		sessions = store.NewRedisSessionStore(rdb, cfg.Redis.KeyPrefix, nowUTC)
	} else {
		rt.sessions = auth.NewMemorySessionStore(nowUTC)
		sessions = rt.sessions
	}

	rt.sequencer = auth.NewSequencer(
		store.NewAdminStore(conn),
		sessions,
		security.NewSessionTokens(cfg.JWT.Secret, nowUTC),
		auth.Options{
			PendingTTL: cfg.Session.PendingTTL,
			SessionTTL: cfg.JWT.Expiry,
			Now:        nowUTC,
			Hook:       auth.NewLogHook(),
		},
	)
	rt.cookie = apphttp.NewSessionCookie(cfg.Session)

	var attempts ratelimit.Store
	if cfg.RateLimit.Backend == config.BackendRedis {
		attempts = ratelimit.NewRedisStore(rdb, ratelimit.RedisConfig{
			KeyPrefix: rateLimitPrefix(cfg.Redis.KeyPrefix),
			TTL:       rateLimitKeyTTL,
		})
	} else {
		rt.buckets = ratelimit.NewMemoryStore()
		attempts = rt.buckets
	}
	rt.limiter = ratelimit.NewLimiter(attempts, ratelimit.Limits{
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
		PerHour:        cfg.RateLimit.PerHour,
		PerDay:         cfg.RateLimit.PerDay,
	})

	catalogStore := store.NewCatalogStore(conn)
	sweeper := catalog.NewSweeper(catalogStore, cfg.Catalog.FeatureDuration, nowUTC)
	rt.catalog = catalog.NewService(catalogStore, sweeper)
	rt.sweeper = catalog.NewBackgroundSweeper(sweeper, cfg.Catalog.SweepInterval)
	return rt
}

// start launches the background loops bound to ctx.
func (rt *runtime) start(ctx context.Context) {
	rt.sweeper.Start(ctx)
	if rt.sessions != nil {
		go purgeSessions(ctx, rt.sessions, janitorInterval)
	}
	if rt.buckets != nil {
		go purgeRateBuckets(ctx, rt.buckets, rt.limiter, janitorInterval)
	}
}

// router builds the gin engine with every route registered.
func (rt *runtime) router(cfg config.Config) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if errProxies := engine.SetTrustedProxies(cfg.Server.TrustedProxies); errProxies != nil {
		return nil, fmt.Errorf("trusted proxies: %w", errProxies)
	}
	engine.Use(gin.Recovery(), apphttp.RequestLogger())

	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:        rt.conn,
		Redis:     rt.redis,
		Sequencer: rt.sequencer,
		Cookie:    rt.cookie,
		Limiter:   rt.limiter,
		Catalog:   rt.catalog,
	})
	front.RegisterFrontRoutes(engine, rt.catalog, rt.limiter)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine, nil
}

// openRedis connects to Redis and verifies the connection.
func openRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := client.Ping(pingCtx).Err(); errPing != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, errPing)
	}
	log.WithFields(log.Fields{
		"addr":     cfg.Addr,
		"db":       cfg.DB,
		"password": util.HideSecret(cfg.Password),
	}).Info("redis connected")
	return client, nil
}

// purgeSessions drops expired in-memory sessions until ctx is done.
func purgeSessions(ctx context.Context, sessions *auth.MemorySessionStore, interval time.Duration) {
	every(ctx, interval, func() {
		if n := sessions.PurgeExpired(); n > 0 {
			log.Debugf("session janitor: purged %d expired sessions", n)
		}
	})
}

// purgeRateBuckets drops in-memory rate buckets idle for longer than the limiter's longest window.
func purgeRateBuckets(ctx context.Context, buckets *ratelimit.MemoryStore, limiter *ratelimit.Limiter, interval time.Duration) {
	maxWindow := limiter.MaxWindow()
	every(ctx, interval, func() {
		if n := buckets.PurgeExpired(limiter.Now(), maxWindow); n > 0 {
			log.Debugf("rate limit janitor: purged %d idle buckets", n)
		}
	})
}

// every runs fn each interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) {
	for {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
		fn()
	}
}

func rateLimitPrefix(keyPrefix string) string {
	if keyPrefix == "" {
		return "rl"
	}
	return keyPrefix + ":rl"
}

// nowUTC returns the current UTC time.
func nowUTC() time.Time { return time.Now().UTC() }
