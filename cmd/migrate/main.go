package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/spf13/pflag"
	_ "modernc.org/sqlite"

	"pfwatch/migrations"
)

const usage = `Usage: migrate [--db path] <command>

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`

func main() {
	_ = godotenv.Load()

	dbPath := pflag.String("db", envOrDefault("DATABASE_PATH", "./data/pfwatch.db"), "path to sqlite database")
	pflag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Prepare(); err != nil {
		log.Fatal(err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
