// Command migrate applies the embedded schema migrations to the QC database.
//
//	migrate [-dsn url] up|down|version
//	migrate [-dsn url] steps N
//	migrate [-dsn url] force V
//
// Without -dsn the URL comes from OSPREY_DB_DSN, then from the service
// configuration resolved the same way the server resolves it.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/osprey/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "OSPREY_DB_DSN"

type command struct {
	verb string
	n    int
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	dsn, cmd, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logger.Error("invalid arguments", "error", err)
		}
		os.Exit(2)
	}

	if dsn == "" {
		dsn = os.Getenv(envDSN)
	}
	if dsn == "" {
		db, err := config.LoadDatabase()
		if err != nil {
			logger.Error("resolve database config", "error", err)
			os.Exit(1)
		}
		dsn = db.URL()
	}

	if err := run(dsn, cmd, logger); err != nil {
		logger.Error("migration failed", "command", cmd.verb, "error", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, out io.Writer) (string, command, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	dsn := fs.String("dsn", "", "database URL (postgres://...)")
	fs.Usage = func() {
		fmt.Fprintln(out, "usage: migrate [-dsn url] up|down|version|steps N|force V")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return "", command{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return "", command{}, errors.New("missing command")
	}

	cmd := command{verb: rest[0]}
	switch cmd.verb {
	case "up", "down", "version":
		if len(rest) != 1 {
			return "", command{}, fmt.Errorf("%s takes no arguments", cmd.verb)
		}
	case "steps", "force":
		if len(rest) != 2 {
			return "", command{}, fmt.Errorf("%s requires one integer argument", cmd.verb)
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil {
			return "", command{}, fmt.Errorf("%s: %w", cmd.verb, err)
		}
		if cmd.verb == "steps" && n == 0 {
			return "", command{}, errors.New("steps must be non-zero")
		}
		cmd.n = n
	default:
		return "", command{}, fmt.Errorf("unknown command %q", cmd.verb)
	}
	return *dsn, cmd, nil
}

func run(dsn string, cmd command, logger *slog.Logger) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	switch cmd.verb {
	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("schema version", "version", v, "dirty", dirty)
		return nil
	case "force":
		if err := m.Force(cmd.n); err != nil {
			return err
		}
		logger.Warn("schema version forced", "version", cmd.n)
		return nil
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(cmd.n)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current", "command", cmd.verb)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "command", cmd.verb, "steps", cmd.n)
	return nil
}
