package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/migrations"
	"github.com/flowbit/flowbit/internal/observability"
	"github.com/flowbit/flowbit/internal/query/sqldb"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status|check")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("flowbit-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		fmt.Fprintf(os.Stderr, "migrations target postgres; FLOWBIT_DATABASE_DRIVER is %q\n", cfg.Database.Driver)
		os.Exit(1)
	}

	db, err := sqldb.Open(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %s\n", observability.Mask(err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "database ping error: %s\n", observability.Mask(err.Error()))
		os.Exit(1)
	}

	runner := migrations.NewRunner()
	switch *direction {
	case "up":
		applied, err := runner.Up(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration up failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
	case "down":
		applied, err := runner.Down(ctx, db, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration down failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("rolled back %d migration(s)\n", applied)
	case "status":
		statuses, err := runner.Status(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration status failed: %v\n", err)
			os.Exit(1)
		}
		for _, status := range statuses {
			fmt.Println(status)
		}
	case "check":
		pending, err := runner.Pending(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "migration check failed: %v\n", err)
			os.Exit(1)
		}
		if len(pending) > 0 {
			for _, item := range pending {
				fmt.Fprintf(os.Stderr, "pending %06d_%s\n", item.Version, item.Name)
			}
			os.Exit(2)
		}
		fmt.Println("schema is up to date")
	default:
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(1)
	}
}
