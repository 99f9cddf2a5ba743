package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/333Kunal/E-com/internal/auth"
	"github.com/333Kunal/E-com/internal/checkout"
	"github.com/333Kunal/E-com/internal/config"
	"github.com/333Kunal/E-com/internal/database"
	"github.com/333Kunal/E-com/internal/database/memstore"
	"github.com/333Kunal/E-com/internal/handlers"
	"github.com/333Kunal/E-com/internal/lock"
	"github.com/333Kunal/E-com/internal/middleware"
	"github.com/333Kunal/E-com/internal/notify"
	"github.com/333Kunal/E-com/internal/payment"
	"github.com/333Kunal/E-com/internal/pricing"
	"github.com/333Kunal/E-com/internal/router"
)

const (
	orderLockTTL    = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

func configureLogging(cfg config.Config) {
	if cfg.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("invalid LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// openStores returns the configured stores and a function that releases them.
func openStores(cfg config.Config) (database.Stores, func(), error) {
	if cfg.Store == config.StoreMemory {
		logrus.Warn("using in-memory store, data is lost on restart")
		return memstore.New().Stores(), func() {}, nil
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		return database.Stores{}, nil, err
	}
	db := client.Database(cfg.DBName)
	logrus.WithField("db", db.Name()).Info("MongoDB connected")

	if err := database.EnsureIndexes(db); err != nil {
		logrus.WithError(err).Warn("index setup incomplete")
	}

	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logrus.WithError(err).Warn("MongoDB disconnect failed")
		}
	}
	return database.NewMongoStores(db), closeFn, nil
}

func newLocker(cfg config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client, err := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("addr", cfg.RedisAddr).Info("order verification locks held in Redis")
	return lock.NewRedisLocker(client, orderLockTTL), func() { _ = client.Close() }, nil
}

func newNotifier(cfg config.Config) notify.Notifier {
	if cfg.SMTPHost == "" {
		return notify.Noop{}
	}
	n, err := notify.NewSMTP(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	if err != nil {
		logrus.WithError(err).Warn("SMTP disabled")
		return notify.Noop{}
	}
	return n
}

func main() {
	config.Load()
	cfg := config.AppEnv
	configureLogging(cfg)

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	handlers.ExposeErrors(!cfg.IsProduction())

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("store setup failed")
	}
	defer closeStores()

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("lock setup failed")
	}
	defer closeLocker()

	policy := auth.NewPolicy(cfg.PrivilegedRoles...)
	gate := auth.NewGate(stores.Accounts, stores.RefreshTokens, auth.Config{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})

	pricingPolicy := pricing.DefaultPolicy()
	pricingPolicy.TaxRate = cfg.TaxRate
	pricingPolicy.FlatShipping = cfg.FlatShipping

	svc := checkout.New(stores.Products, stores.Orders, checkout.Config{
		Locker:        locker,
		Notifier:      newNotifier(cfg),
		Accounts:      stores.Accounts,
		Pricing:       &pricingPolicy,
		StrictPricing: cfg.StrictPricing,
		Merchant:      payment.Merchant{UpiID: cfg.MerchantUpiID, Name: cfg.MerchantName},
	})

	r := router.New(router.Deps{
		Stores:      stores,
		Gate:        gate,
		Checkout:    svc,
		Policy:      policy,
		Images:      handlers.NewImageStore(cfg.UploadDir),
		UploadDir:   cfg.UploadDir,
		CORSOrigins: cfg.CORSOrigins,
		AuthLimiter: middleware.PerMinute(cfg.AuthRatePerMin),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":            cfg.Port,
			"store":           cfg.Store,
			"privilegedRoles": policy.Roles(),
			"strictPricing":   cfg.StrictPricing,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server forced to shutdown")
	}

	drained := make(chan struct{})
	go func() {
		svc.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		logrus.Warn("pending order confirmations abandoned")
	}
	logrus.Info("server exited")
}
