package service

import (
	"sync"
	"time"

	"github.com/emzola/circulation/config"
	"github.com/emzola/circulation/internal/jsonlog"
	"github.com/emzola/circulation/internal/mailer"
	"github.com/emzola/circulation/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTokenTTL = 24 * time.Hour

type Service interface {
	authors
	books
	borrows
	users
	tokens
}

// service implements Service on top of a Repository.
type service struct {
	config   config.Config
	wg       *sync.WaitGroup
	logger   *jsonlog.Logger
	repo     repository.Repository
	mailer   mailer.Sender
	tracer   trace.Tracer
	tokenTTL time.Duration
	now      func() time.Time
}

// New creates a new instance of Service. Background jobs such as outgoing
// mail register with wg so that shutdown can wait for them.
func New(cfg config.Config, wg *sync.WaitGroup, logger *jsonlog.Logger, repo repository.Repository, sender mailer.Sender) *service {
	ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil || ttl <= 0 {
		logger.PrintWarn("invalid token ttl, using default", map[string]string{
			"token_ttl": cfg.Auth.TokenTTL,
			"default":   defaultTokenTTL.String(),
		})
		ttl = defaultTokenTTL
	}
	return &service{
		config:   cfg,
		wg:       wg,
		logger:   logger,
		repo:     repo,
		mailer:   sender,
		tracer:   otel.Tracer("github.com/emzola/circulation/service"),
		tokenTTL: ttl,
		now:      time.Now,
	}
}
