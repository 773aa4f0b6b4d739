package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-store/internal/audit"
	"credit-store/internal/auth"
	"credit-store/internal/catalog"
	"credit-store/internal/config"
	"credit-store/internal/convo"
	"credit-store/internal/httpapi"
	"credit-store/internal/notify"
	"credit-store/internal/orders"
	"credit-store/internal/reporting"
	"credit-store/internal/sms"
	"credit-store/internal/users"
	"credit-store/internal/wallet"
	"credit-store/pkg/logger"
	"credit-store/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

const convoSessionTTL = 30 * time.Minute

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Env file is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services. The wallet service is the single owner of balance
	// mutation; everything that moves money goes through it.
	walletSvc := wallet.NewService(db)
	userSvc := users.NewService(users.NewPostgresRepo(db), walletSvc)
	catalogSvc := catalog.NewService(catalog.NewPostgresRepo(db))
	orderSvc := orders.NewService(
		db,
		orders.NewPostgresRepo(db),
		walletSvc,
		orders.NewHTTPProvider(cfg.Provider.BaseURL, cfg.Provider.APIToken, cfg.Provider.Timeout),
		catalogSvc,
	)
	smsSvc := sms.NewService(sms.NewPostgresStore(db), cfg.SMS.MatchTolerance, cfg.SMS.MatchWindow)
	convoSvc := convo.NewService(convo.NewRedisStore(rdb, convoSessionTTL))
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	statsSvc := reporting.NewService(reporting.NewPostgresRepo(db))
	notifier := notify.NewAsync(notify.NewTelegram(cfg.Bot.Token), log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:          authManager,
		AdminAPIKey:   cfg.Auth.AdminAPIKey,
		GatewaySecret: cfg.Bot.Token,
		Wallet:        walletSvc,
		Users:         userSvc,
		Catalog:       catalogSvc,
		Orders:        orderSvc,
		Convo:         convoSvc,
		Stats:         statsSvc,
		Audit:         auditSvc,
		Notify:        notifier,
	}
	webhook := sms.WebhookHandler{
		Secret:     cfg.SMS.WebhookSecret,
		SMS:        smsSvc,
		Approver:   walletSvc,
		Redis:      rdb,
		RateLimit:  60,
		RateWindow: time.Minute,
	}
	registerRoutes(r, authManager, h, webhook)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
