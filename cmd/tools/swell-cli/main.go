// Package main implements swell-cli, an operator tool for running the alert
// pipeline pieces by hand against the configured database.
//
// Usage:
//
//	go run ./cmd/tools/swell-cli run-alerts --user=u_123 --date=2026-03-14
//	go run ./cmd/tools/swell-cli scores --region=north-shore
//	go run ./cmd/tools/swell-cli score --location=pipeline --date=2026-03-14
//	go run ./cmd/tools/swell-cli inbox --user=u_123 --limit=20
//	go run ./cmd/tools/swell-cli enqueue --user=u_123
//	go run ./cmd/tools/swell-cli migrate
//
// Configuration is read from the environment (or a .env file), the same as
// the Lambda binaries.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"

	"swellwatch/internal/app"
	"swellwatch/internal/config"
	"swellwatch/internal/db"
	"swellwatch/internal/queue"
	"swellwatch/internal/types"
)

var errUsage = errors.New("usage")

type command struct {
	summary string
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"run-alerts": {"Evaluate one user's alerts for a day and dispatch matches", cmdRunAlerts},
	"scores":     {"Get or compute the daily scores of a region", cmdScores},
	"score":      {"Show the deduction breakdown for one location", cmdScore},
	"inbox":      {"List a user's in-app notifications", cmdInbox},
	"enqueue":    {"Publish an alert-run message for one user", cmdEnqueue},
	"migrate":    {"Apply pending database migrations", cmdMigrate},
}

// cli holds lazily created dependencies so flag errors never touch the
// database.
type cli struct {
	out    io.Writer
	logger *slog.Logger
	cfg    *config.Config
	app    *app.App
}

func (c *cli) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *cli) connect(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, c.logger, app.Options{})
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	c := &cli{out: os.Stdout, logger: logger}
	defer c.close()

	if err := run(ctx, c, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		c.close()
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(os.Stderr)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(os.Stderr)
		return errUsage
	}
	return cmd.run(ctx, c, args[1:])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: swell-cli <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-12s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nRun 'swell-cli <command> -h' for command flags.\n")
}

// parseDay accepts YYYY-MM-DD; empty means today in UTC.
func parseDay(s string) (time.Time, error) {
	if s == "" {
		return types.Day(time.Now().UTC()), nil
	}
	d, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func cmdRunAlerts(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("run-alerts")
	user := fs.String("user", "", "User ID (required)")
	date := fs.String("date", "", "Day to evaluate, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *user == "" {
		return fmt.Errorf("--user is required")
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}

	a, err := c.connect(ctx)
	if err != nil {
		return err
	}
	ctx = types.WithRunID(ctx, "cli-"+uuid.NewString())
	stats, err := a.Runner.RunAlertsForUser(ctx, *user, day)
	if err != nil {
		return err
	}
	return c.printJSON(stats)
}

func cmdScores(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("scores")
	region := fs.String("region", "", "Region ID (required)")
	date := fs.String("date", "", "Day, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *region == "" {
		return fmt.Errorf("--region is required")
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}

	a, err := c.connect(ctx)
	if err != nil {
		return err
	}
	scores, err := a.Scores.ComputeDailyScores(ctx, *region, day)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		fmt.Fprintf(c.out, "no scores for %s on %s (no forecast)\n", *region, day.Format(types.DateLayout))
		return nil
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(c.out, "%-24s %d\n", id, scores[id])
	}
	return nil
}

func cmdScore(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("score")
	location := fs.String("location", "", "Location ID (required)")
	date := fs.String("date", "", "Day, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *location == "" {
		return fmt.Errorf("--location is required")
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}

	a, err := c.connect(ctx)
	if err != nil {
		return err
	}
	profile, err := a.Locations.GetByID(ctx, *location)
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("location %q not found", *location)
	}
	forecast, err := a.Forecasts.GetForecast(ctx, profile.RegionID, day)
	if err != nil {
		return err
	}
	if forecast == nil {
		return fmt.Errorf("no forecast for region %s on %s", profile.RegionID, day.Format(types.DateLayout))
	}
	b, err := a.Engine.Breakdown(profile, forecast)
	if err != nil {
		return err
	}
	return c.printJSON(map[string]any{
		"location_id": profile.ID,
		"region_id":   profile.RegionID,
		"date":        day.Format(types.DateLayout),
		"deductions":  b,
		"total":       b.Total(),
		"score":       b.Score(),
	})
}

func cmdInbox(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("inbox")
	user := fs.String("user", "", "User ID (required)")
	limit := fs.Int("limit", 20, "Maximum entries")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *user == "" {
		return fmt.Errorf("--user is required")
	}
	if *limit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	a, err := c.connect(ctx)
	if err != nil {
		return err
	}
	list, err := a.Notifications.ListUserNotifications(ctx, *user, *limit)
	if err != nil {
		return err
	}
	return c.printJSON(list)
}

func cmdEnqueue(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("enqueue")
	user := fs.String("user", "", "User ID (required)")
	date := fs.String("date", "", "Day, YYYY-MM-DD (default today)")
	dryRun := fs.Bool("dry-run", false, "Print the message without sending")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *user == "" {
		return fmt.Errorf("--user is required")
	}
	day, err := parseDay(*date)
	if err != nil {
		return err
	}

	msg := queue.NewMessage(types.WithRunID(ctx, "cli-"+uuid.NewString()), *user, day)
	if *dryRun {
		return c.printJSON(msg)
	}

	cfg, err := c.config()
	if err != nil {
		return err
	}
	if cfg.AWS.AlertRunQueueURL == "" {
		return fmt.Errorf("SQS_ALERT_RUNS is not set")
	}
	clients, err := app.NewAWSClients(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	producer := queue.NewAlertRunProducer(clients.SQS, cfg.AWS, c.logger)
	if err := producer.Enqueue(ctx, msg, "manual"); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "enqueued run %s for %s on %s\n", msg.RunID, msg.UserID, msg.Date)
	return nil
}

func cmdMigrate(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("migrate")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg, err := c.config()
	if err != nil {
		return err
	}
	pool, err := app.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, db.NewTxManager(pool), pool)
	for _, name := range applied {
		fmt.Fprintf(c.out, "applied %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(c.out, "schema up to date")
	}
	return nil
}
