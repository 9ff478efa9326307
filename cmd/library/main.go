package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"time"

	"github.com/emzola/circulation/config"
	"github.com/emzola/circulation/handler"
	"github.com/emzola/circulation/internal/jsonlog"
	"github.com/emzola/circulation/internal/mailer"
	"github.com/emzola/circulation/migrations"
	"github.com/emzola/circulation/repository"
	"github.com/emzola/circulation/repository/postgres"
	"github.com/emzola/circulation/service"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long a client's rate limiter outlives its last request.
const limiterIdleTTL = 3 * time.Minute

// app defines the application's layers and shared resources.
type app struct {
	config  config.Config
	repo    repository.Repository
	service service.Service
	handler *handler.Handler
}

func main() {
	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)
	err := run(logger, os.Args[1:])
	if err != nil {
		logger.PrintFatal(err, nil)
		os.Exit(1)
	}
}

// run does the work of main and returns instead of exiting, so deferred
// cleanup always happens.
func run(logger *jsonlog.Logger, args []string) error {
	fs := flag.NewFlagSet("library", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	err := fs.Parse(args)
	if err != nil {
		return err
	}

	// Initialize configuration
	cfg, err := config.Decode(*configPath)
	if err != nil {
		return err
	}

	// Initialize database connection
	db, err := postgres.OpenDBConn(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.PrintInfo("database connection pool established", nil)

	if cfg.Database.Migrate {
		applied, err := migrations.Apply(context.Background(), db)
		if err != nil {
			return err
		}
		for _, version := range applied {
			logger.PrintInfo("applied migration", map[string]string{"version": version})
		}
	}

	var sender mailer.Sender = mailer.Discard{}
	if cfg.SMTPEnabled() {
		sender = mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
	} else {
		logger.PrintWarn("smtp host not configured, outgoing mail is discarded", nil)
	}

	// Other shared resources: waitgroup and per-client rate limiters
	var wg sync.WaitGroup
	limiters := ttlcache.New(ttlcache.WithTTL[string, *rate.Limiter](limiterIdleTTL))
	go limiters.Start()
	defer limiters.Stop()

	// Application layers
	repo := repository.New(db)
	service := service.New(cfg, &wg, logger, repo, sender)
	handler := handler.New(cfg, logger, limiters, service)

	app := &app{
		config:  cfg,
		repo:    repo,
		service: service,
		handler: handler,
	}

	// Start HTTP server
	return app.serve(&wg, logger)
}
