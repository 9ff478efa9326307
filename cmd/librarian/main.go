// Command librarian creates a staff account, or promotes an existing one,
// so that the catalog can be curated from a fresh install.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strconv"
	"sync"

	"github.com/emzola/circulation/config"
	"github.com/emzola/circulation/internal/jsonlog"
	"github.com/emzola/circulation/internal/mailer"
	"github.com/emzola/circulation/repository"
	"github.com/emzola/circulation/repository/postgres"
	"github.com/emzola/circulation/service"
)

var errMissingUsername = errors.New("the -username flag must be provided")

func main() {
	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)
	err := run(logger, os.Args[1:], os.Getenv)
	if err != nil {
		fields, _ := service.ValidationFields(err)
		logger.PrintFatal(err, fields)
		os.Exit(1)
	}
}

// run does the work of main and returns instead of exiting, so deferred
// cleanup always happens.
func run(logger *jsonlog.Logger, args []string, getenv func(string) string) error {
	fs := flag.NewFlagSet("librarian", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "path to the YAML configuration file")
	username := fs.String("username", "", "staff username")
	email := fs.String("email", "", "staff email address (optional)")
	err := fs.Parse(args)
	if err != nil {
		return err
	}
	if *username == "" {
		fs.Usage()
		return errMissingUsername
	}
	// The password comes from the environment so it stays out of shell history.
	password := getenv("LIBRARIAN_PASSWORD")

	cfg, err := config.Decode(*configPath)
	if err != nil {
		return err
	}
	db, err := postgres.OpenDBConn(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var wg sync.WaitGroup
	defer wg.Wait()
	svc := service.New(cfg, &wg, logger, repository.New(db), mailer.Discard{})
	user, created, err := svc.EnsureStaffUser(context.Background(), *username, *email, password)
	if err != nil {
		return err
	}

	message := "promoted user to staff"
	if created {
		message = "created staff user"
	}
	logger.PrintInfo(message, map[string]string{
		"id":       strconv.FormatInt(user.ID, 10),
		"username": user.Username,
	})
	return nil
}
