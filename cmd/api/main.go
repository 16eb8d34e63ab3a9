package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"wordsofdeath.app/internal/accounts"
	"wordsofdeath.app/internal/auth"
	"wordsofdeath.app/internal/cache"
	"wordsofdeath.app/internal/config"
	"wordsofdeath.app/internal/discord"
	"wordsofdeath.app/internal/entries"
	"wordsofdeath.app/internal/httpapi"
	"wordsofdeath.app/internal/obs"
	"wordsofdeath.app/internal/store/pg"
)

var (
	version = "1.2.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	accountOpts := []accounts.ServiceOption{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		accountOpts = append(accountOpts, accounts.WithUserCache(cache.NewUsers(rdb)))
	}

	accountsSvc, err := accounts.NewService(store, accountOpts...)
	if err != nil {
		log.Fatalf("accounts service: %v", err)
	}
	entriesSvc, err := entries.NewService(store)
	if err != nil {
		log.Fatalf("entries service: %v", err)
	}

	sessions, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	if !sessions.Expiring() {
		log.Println("warning: WOD_SESSION_TTL not set, issued sessions never expire")
	}

	identity := discord.NewClient(cfg.DiscordClientID, cfg.DiscordClientSecret,
		cfg.RedirectURI(), cfg.UpstreamTimeout)

	api, err := httpapi.New(httpapi.Options{
		Accounts:        accountsSvc,
		Entries:         entriesSvc,
		Sessions:        sessions,
		Identity:        identity,
		Ready:           httpapi.ReadyProbe{DB: store.DB()},
		ClientURL:       cfg.ClientURL,
		AccessDeniedURL: cfg.AccessDeniedURL,
		AllowedOrigins:  cfg.AllowedOrigins,
		SecureCookies:   cfg.SecureCookies(),
		Version:         version,
	})
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting wordsofdeath-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
