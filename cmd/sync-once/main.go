// Команда sync-once выполняет один цикл синхронизации и печатает итог в JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/app"
)

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if level, err := log.ParseLevel(os.Getenv(app.EnvLogLevel)); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.LookupEnv, os.Stdout); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseRequest разбирает -job/-days/-force.
func parseRequest(args []string) (app.OnceRequest, error) {
	var req app.OnceRequest
	fs := flag.NewFlagSet("sync-once", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&req.Job, "job", "", "named job: sync_next_30_days|sync_next_7_days|sync_today")
	fs.IntVar(&req.Days, "days", 0, "ad hoc horizon in days, 1..60")
	fs.BoolVar(&req.Force, "force", false, "run a named job even if it is disabled")
	if err := fs.Parse(args); err != nil {
		return app.OnceRequest{}, fmt.Errorf("parse flags: %w", err)
	}
	if (req.Job == "") == (req.Days == 0) {
		return app.OnceRequest{}, errors.New("exactly one of -job or -days is required")
	}
	return req, nil
}

func run(ctx context.Context, args []string, lookup app.EnvLookup, out io.Writer) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}

	cfg, warnings := app.ConfigFromEnv(lookup)
	for _, w := range warnings {
		log.Warn(w)
	}

	result, err := app.RunOnce(ctx, cfg, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
