package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"taskmanager.org/internal/config"
	"taskmanager.org/internal/migrate"
	"taskmanager.org/internal/obs"
)

func main() {
	logger := obs.NewLogger("info", "text", os.Stderr)
	obs.SetLogger(logger)

	var (
		dsn     = flag.String("dsn", os.Getenv(config.EnvPrefix+"PG_DSN"), "PostgreSQL DSN")
		timeout = flag.Duration("timeout", 30*time.Second, "Overall timeout")
	)
	flag.Parse()

	fatal := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	if *dsn == "" {
		fatal("missing DSN: provide via -dsn or " + config.EnvPrefix + "PG_DSN")
	}
	if len(flag.Args()) == 0 {
		fatal("usage: migrate [up|down|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatal("open db", "error", err)
	}
	defer db.Close()

	mgr := migrate.NewManager(db, migrate.Migrations(), migrate.Seeds())

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		err = mgr.Up(ctx)
	case "down":
		err = mgr.Down(ctx)
	case "seed":
		err = mgr.Seed(ctx)
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		fatal("unknown command", "command", cmd)
	}
	if err != nil {
		fatal("migrate failed", "command", cmd, "error", err)
	}
	logger.Info("migrate done", "command", cmd)
}
