package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"covoy.app/internal/database"
)

func main() {
	log.SetFlags(0)
	dsn := flag.String("dsn", os.Getenv("COVOY_PG_DSN"), "PostgreSQL URL")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or COVOY_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [up|down|version]")
	}

	m, err := database.NewMigrator(*dsn)
	if err != nil {
		log.Fatalf("migrator: %v", err)
	}
	defer m.Close()

	switch flag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatalf("version: %v", verr)
		}
		log.Printf("version=%d dirty=%v", v, dirty)
		return
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	log.Println("done")
}
