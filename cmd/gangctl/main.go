// Package main - gangctl
// Runs one command line against the persisted simulation and saves the
// result, e.g. `gangctl bribe M1 gun` or `gangctl debug gangs`.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MRamiBalles/CarcelGangs/server/internal/engine"
	"github.com/MRamiBalles/CarcelGangs/server/internal/infra/storage"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/config"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/logger"
	"github.com/MRamiBalles/CarcelGangs/server/internal/platform/random"
	"github.com/MRamiBalles/CarcelGangs/server/internal/simulation"
)

func main() {
	verbose := flag.Bool("v", false, "log engine events to stderr")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: gangctl [-v] <command> [args...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(context.Background(), strings.Join(flag.Args(), " "), *verbose, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, simulation.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, line string, verbose bool, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger := logger.NewDiscard()
	if verbose {
		appLogger = logger.NewWithWriter(os.Stderr, slog.LevelInfo)
	}

	store, err := storage.Open(ctx, cfg.Server)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	rt := simulation.New(simulation.Options{
		Engine:         engine.NewEngine(cfg.Simulation, random.NewSeeded(cfg.Server.Seed), appLogger),
		Logger:         appLogger,
		Store:          store,
		GameID:         cfg.Server.GameID,
		EventRetention: cfg.Server.EventRetention,
		DrugRetention:  cfg.Server.DrugRetention,
	})
	if err := rt.Restore(ctx); err != nil {
		return err
	}

	reply, err := rt.Execute(ctx, line)
	if reply.Text != "" {
		fmt.Fprintln(out, reply.Text)
	}
	if err != nil {
		return err
	}
	if !reply.OK() {
		return reply.Result.Failure
	}
	return nil
}
