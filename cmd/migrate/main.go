// Command migrate manages the schema of an on-disk alert journal.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"fhunt_bot/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`

func main() {
	dbPath := flag.String("db", os.Getenv("DATABASE_PATH"), "path to the sqlite journal")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if *dbPath == "" || *dbPath == ":memory:" {
		log.Error("an on-disk journal path is required", "db", *dbPath)
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Error("open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	p, err := migrations.NewProvider(db)
	if err != nil {
		log.Error("create provider", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), p, args[0]); err != nil {
		log.Error("migrate", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, p *goose.Provider, cmd string) error {
	switch cmd {
	case "up":
		return report(p.Up(ctx))
	case "up-one":
		r, err := p.UpByOne(ctx)
		return report([]*goose.MigrationResult{r}, err)
	case "down":
		r, err := p.Down(ctx)
		return report([]*goose.MigrationResult{r}, err)
	case "reset":
		return report(p.DownTo(ctx, 0))
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-6d %-24s %s\n", s.Source.Version, applied, s.Source.Path)
		}
		return nil
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func report(results []*goose.MigrationResult, err error) error {
	for _, r := range results {
		if r != nil {
			fmt.Println(r)
		}
	}
	return err
}
