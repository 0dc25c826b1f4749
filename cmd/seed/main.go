package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/staff-dashboard/internal/application"
	"github.com/example/staff-dashboard/internal/config"
	"github.com/example/staff-dashboard/internal/logging"
	"github.com/example/staff-dashboard/internal/persistence/stores"
	"github.com/example/staff-dashboard/internal/seed"
)

var (
	fSeed     int64
	fPeople   int
	fManagers int
	fFrom     string
	fDays     int
	fTimeOff  int
	fDomain   string
)

func main() {
	flag.Int64Var(&fSeed, "seed", 1, "Random seed; the same seed always produces the same dataset")
	flag.IntVar(&fPeople, "people", 20, "Number of people on the roster")
	flag.IntVar(&fManagers, "managers", 2, "How many of the people are managers")
	flag.StringVar(&fFrom, "from", "", "First scheduled day (YYYY-MM-DD), defaults to today")
	flag.IntVar(&fDays, "days", 14, "Number of days to schedule")
	flag.IntVar(&fTimeOff, "time-off", 5, "Number of time-off requests")
	flag.StringVar(&fDomain, "domain", "example.com", "Email domain for generated people")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.LoadStore()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, "text", cfg.LogLevel)

	from := time.Now().UTC()
	if fFrom != "" {
		from, err = time.Parse(time.DateOnly, fFrom)
		if err != nil {
			return fmt.Errorf("invalid -from %q: %w", fFrom, err)
		}
	}

	documents, err := stores.OpenDocuments(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if cerr := documents.Close(); cerr != nil {
			logger.Error("failed to close document store", "error", cerr)
		}
	}()

	data := seed.New(fSeed, nil, from).Dataset(seed.Options{
		People:   fPeople,
		Managers: fManagers,
		From:     from,
		Days:     fDays,
		TimeOff:  fTimeOff,
		Domain:   fDomain,
	})

	repo := application.NewDocumentRepository(documents, logger)
	if err := seed.Load(ctx, repo, data); err != nil {
		return err
	}
	logger.Info("dataset loaded",
		"store", cfg.Store,
		"people", len(data.People),
		"shifts", len(data.Shifts),
		"time_off", len(data.TimeOff),
	)
	return nil
}
