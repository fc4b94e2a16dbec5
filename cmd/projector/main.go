package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Projector/internal/accuracy"
	"github.com/Alias1177/Projector/internal/app"
	"github.com/Alias1177/Projector/internal/config"
	"github.com/Alias1177/Projector/internal/csvtable"
	"github.com/Alias1177/Projector/internal/database"
	"github.com/Alias1177/Projector/models"
)

const usage = `usage: projector <command> [arguments]

commands:
  research <player>...           project each player's next game and save it
  scan                           run one status pass over pending projections
  watch                          run status passes every SCAN_INTERVAL
  list [-status s] [-player p]   print stored projections
  accuracy                       print prediction error over completed projections
  export <file.csv>              write every projection to a CSV file
  import <file.csv>              load projections from a CSV file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogging(cfg.LogLevel)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise")
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("Command failed")
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "research":
		return runResearch(ctx, a, args)
	case "scan":
		report, err := a.Manager.Scan(ctx)
		if err != nil {
			return err
		}
		printReport(report)
		return nil
	case "watch":
		log.Info().Dur("interval", a.Config.ScanInterval).Msg("Watching projections")
		return a.Manager.Run(ctx, a.Config.ScanInterval)
	case "list":
		return runList(ctx, a.Store, args)
	case "accuracy":
		records, err := a.Store.Find(ctx, database.Filter{Statuses: []models.Status{models.StatusCompleted}})
		if err != nil {
			return err
		}
		printAccuracy(accuracy.Compute(records))
		return nil
	case "export":
		return runExport(ctx, a.Store, args)
	case "import":
		return runImport(ctx, a.Store, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runResearch(ctx context.Context, a *app.App, args []string) error {
	if len(args) == 0 {
		return errors.New("research needs at least one player name")
	}

	failed := 0
	for _, result := range a.Research.ProjectAll(ctx, args) {
		if result.Err != nil {
			failed++
			fmt.Printf("\n%s: %v\n", result.Name, result.Err)
			continue
		}
		printOutcome(result.Outcome)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d players failed", failed, len(args))
	}
	return nil
}

func runList(ctx context.Context, store database.Store, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "comma separated statuses")
	player := fs.String("player", "", "player name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := database.Filter{Player: *player}
	if *status != "" {
		for _, part := range strings.Split(*status, ",") {
			s, err := models.ParseStatus(part)
			if err != nil {
				return err
			}
			filter.Statuses = append(filter.Statuses, s)
		}
	}

	records, err := store.Find(ctx, filter)
	if err != nil {
		return err
	}
	printRecords(os.Stdout, records)
	return nil
}

func runExport(ctx context.Context, store database.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("export needs a file name")
	}
	records, err := store.Find(ctx, database.Filter{})
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := csvtable.Write(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Info().Int("records", len(records)).Str("file", args[0]).Msg("Exported projections")
	return nil
}

func runImport(ctx context.Context, store database.Store, args []string) error {
	if len(args) != 1 {
		return errors.New("import needs a file name")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := csvtable.Read(f)
	if err != nil {
		return err
	}

	saved, skipped, err := importRecords(ctx, store, records)
	log.Info().Int("saved", saved).Int("skipped", skipped).Str("file", args[0]).Msg("Imported projections")
	return err
}

// importRecords saves records, skipping those already stored for the same player and game date
func importRecords(ctx context.Context, store database.Store, records []models.Record) (saved, skipped int, err error) {
	for i := range records {
		rec := records[i]
		if err := store.Save(ctx, &rec); err != nil {
			if errors.Is(err, models.ErrDuplicateProjection) {
				skipped++
				continue
			}
			return saved, skipped, fmt.Errorf("%s: %w", rec.Key(), err)
		}
		saved++
	}
	return saved, skipped, nil
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, exiting...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
