package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"table-status-backend/config"
	"table-status-backend/internal/api"
	"table-status-backend/internal/auth"
	"table-status-backend/internal/confirm"
	"table-status-backend/internal/db"
	"table-status-backend/internal/engine"
	"table-status-backend/internal/events"
	"table-status-backend/internal/menu"
	"table-status-backend/internal/notice"
	"table-status-backend/internal/notification"
	"table-status-backend/internal/order"
	"table-status-backend/internal/store"
	"table-status-backend/internal/store/mongostore"
)

func main() {
	issueFor := flag.String("issue-token", "", "print a sign-in token for this uid and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	setupLogging(cfg.Log)
	log.Infof("configuration loaded from %s", configPath)

	if *issueFor != "" {
		token, err := auth.IssueToken(*issueFor, cfg.Auth.TokenSecret, *tokenTTL)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	identities := auth.NewProvider()
	if _, err := identities.SignIn(cfg.Auth.CustomToken, cfg.Auth.TokenSecret); err != nil {
		log.Fatalf("failed to establish identity: %v", err)
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	backend, closeBackend := openStore(ctx, cfg, gormDB)
	defer closeBackend()
	st := store.RequireIdentity(backend, identities)
	collection := cfg.CollectionPath()

	notices := notice.NewBoard(cfg.Notices.TTL)
	if cfg.Seeding.Enabled {
		created, err := store.SeedIfEmpty(ctx, st, collection, cfg.Seeding.NumTables)
		if err != nil {
			log.Fatalf("failed to seed tables: %v", err)
		}
		if created > 0 {
			notices.Success(fmt.Sprintf("%d mesas inicializadas!", created))
		}
	}

	var webpushOptions *webpush.Options
	var freed engine.FreedTableSink
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		freed = pool
	} else {
		log.Warn("VAPID keys are not configured; freed-table push alerts are disabled")
	}

	signals := engine.NewBroadcaster()
	gate := confirm.NewGate(func() { signals.Emit(engine.SignalConfirmation) })
	formatter := order.NewFormatter(cfg.Server.Locale)
	ctrl := engine.New(engine.Options{
		Store:      st,
		Collection: collection,
		Menu:       menu.Default(),
		Notices:    notices,
		Confirmer:  gate,
		Formatter:  formatter,
		Signals:    signals,
		Freed:      freed,
	})
	if err := ctrl.Start(ctx); err != nil {
		log.Fatalf("failed to start engine: %v", err)
	}

	handler := api.NewHandler(api.Deps{
		Engine:     ctrl,
		Gate:       gate,
		Notices:    notices,
		Formatter:  formatter,
		DB:         gormDB,
		Webpush:    webpushOptions,
		Background: ctx,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler, cfg.Server),
	}

	go func() {
		log.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server Shutdown: %v", err)
	}
	log.Info("server gracefully stopped")
}

func setupLogging(cfg config.LogConfig) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if level < log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
}

// openStore returns the configured document store and its cleanup.
func openStore(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (store.Store, func()) {
	switch cfg.Store.Backend {
	case "mongo":
		ms, err := mongostore.Connect(ctx, cfg.Store.Mongo.URL, cfg.Store.Mongo.Database, cfg.Store.PollInterval)
		if err != nil {
			log.Fatalf("failed to open mongo store: %v", err)
		}
		return ms, func() {
			if err := ms.Close(context.Background()); err != nil {
				log.WithError(err).Warn("mongo disconnect failed")
			}
		}
	case "sql", "":
	default:
		log.Fatalf("unsupported store backend %q", cfg.Store.Backend)
	}

	opts := []store.Option{store.WithPollInterval(cfg.Store.PollInterval)}
	var notifier *events.NATSNotifier
	cleanup := func() {}
	if cfg.NATS.URL != "" {
		conn, err := events.Dial(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		notifier = events.NewNATSNotifier(conn, cfg.NATS.Subject)
		opts = append(opts, store.WithNotifier(notifier))
		cleanup = conn.Close
	}

	gs := store.NewGormStore(gormDB, opts...)
	if notifier != nil {
		if err := notifier.Listen(ctx, gs.Wake); err != nil {
			log.Fatalf("failed to listen for change notifications: %v", err)
		}
		log.WithField("subject", cfg.NATS.Subject).Info("listening for remote table changes")
	}
	return gs, cleanup
}
