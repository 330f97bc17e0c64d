package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/auth/oauth"
	"github.com/jrsteele09/go-account-service/auth/otp"
	"github.com/jrsteele09/go-account-service/auth/sessions"
	"github.com/jrsteele09/go-account-service/cache"
	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/jrsteele09/go-account-service/mail"
	"github.com/jrsteele09/go-account-service/server"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/jrsteele09/go-account-service/users/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			stdlog.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	stdlog.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			stdlog.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	displayAppname(cfg.Server.AppName)

	logger := newLogger(cfg)

	authService, cleanup, err := buildAuthService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	serverOptions := []server.Option{server.WithLogger(logger)}
	if cfg.Google.Enabled() {
		provider, err := oauth.NewGoogleProvider(context.Background(), cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		if err != nil {
			return fmt.Errorf("oauth.NewGoogleProvider: %w", err)
		}
		serverOptions = append(serverOptions, server.WithOAuthProvider(provider))
	}

	httpServer := &http.Server{Addr: cfg.Server.Addr(), Handler: server.New(cfg, authService, serverOptions...)}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildAuthService(cfg *config.Config, logger zerolog.Logger) (*auth.Service, func(), error) {
	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := postgres.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("postgres.RunMigrations: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	cacheStore := cache.NewRedisStore(redisClient)

	authority, err := token.NewAuthority(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		token.WithTokenExpiry(cfg.Security.AccessTokenTTL, cfg.Security.RefreshTokenTTL),
	)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, nil, fmt.Errorf("token.NewAuthority: %w", err)
	}

	serviceOptions := []auth.ServiceOption{
		auth.WithLogger(logger),
		auth.WithLockoutPolicy(cfg.Security.MaxLoginAttempts, cfg.Security.LockoutWindow),
		auth.WithIPBinding(cfg.Security.MatchIPAddress),
	}

	var mailQueue *mail.Queue
	if cfg.Mail.Enabled() {
		sender := mail.NewResendSender(cfg.Mail.ResendAPIKey, cfg.Mail.FromEmail, cfg.Server.AppName)
		mailQueue = mail.NewQueue(sender, mail.WithQueueLogger(logger))
		serviceOptions = append(serviceOptions, auth.WithMailer(mailQueue))
	} else {
		logger.Warn().Msg("outbound email disabled: RESEND_API_KEY not set")
	}

	authService, err := auth.NewService(auth.Repos{
		Users:    postgres.NewRepository(db),
		Sessions: sessions.NewStore(cacheStore, cfg.Security.SessionTTL),
		Reset:    otp.NewStore(cacheStore, cfg.Security.OTPTTL, cfg.Security.ResetTokenTTL),
	}, authority, serviceOptions...)
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, nil, fmt.Errorf("auth.NewService: %w", err)
	}

	cleanup := func() {
		if mailQueue != nil {
			mailQueue.Close()
		}
		redisClient.Close()
		db.Close()
	}
	return authService, cleanup, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Server.IsDev() {
		return log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Logger
}

func listenAndServe(server *http.Server) error {
	stdlog.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
