package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rami3l/clavy/pkg/logging"
	"github.com/rami3l/clavy/pkg/sourcestore/sqlite"
	"github.com/rami3l/clavy/pkg/sourcestore/sqlite/migrations"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %+v", err)
	}
}

func run() error {
	path := flag.String("path", "", "path to dump the schema to")
	debug := flag.Bool("debug", false, "use debug level logging")
	flag.Parse()

	if *path == "" {
		return errors.New("missing -path flag")
	}

	log, err := logging.New(logging.Options{Debug: *debug})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	log.Info("creating empty database")
	db, err := sql.Open("sqlite3", "file:/dev/null?cache=shared&mode=memory")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	log.Info("applying migrations")
	if err := migrations.Migrate(db, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	file, err := os.Create(*path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	log.Info("dumping schema")
	schema, err := sqlite.DumpSchema(context.Background(), sqlite.New(db))
	if err != nil {
		return fmt.Errorf("dump schema: %w", err)
	}

	for _, statement := range schema {
		if _, err := fmt.Fprintf(file, "%s;\n\n", statement); err != nil {
			return fmt.Errorf("write file: %w", err)
		}
	}

	return nil
}
