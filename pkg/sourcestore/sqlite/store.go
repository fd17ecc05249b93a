package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rami3l/clavy/pkg/clavy"
	"github.com/rami3l/clavy/pkg/sourcestore"
	"github.com/rami3l/clavy/pkg/sourcestore/sqlite/migrations"
	"go.uber.org/zap"
)

type Persister struct {
	db      *sql.DB
	querier *Queries
}

func NewPersister(filename string, log *zap.SugaredLogger) (*Persister, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrations.Migrate(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Persister{
		db:      db,
		querier: New(db),
	}, nil
}

func (p *Persister) Close() error {
	return p.db.Close()
}

func (p *Persister) Load(ctx context.Context) (sourcestore.Sources, error) {
	rows, err := p.querier.GetInputSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite select: %w", err)
	}

	ret := make(sourcestore.Sources, len(rows))
	for _, row := range rows {
		ret[clavy.AppID(row.App)] = clavy.InputSourceID(row.Source)
	}

	return ret, nil
}

func (p *Persister) Save(ctx context.Context, sources sourcestore.Sources) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := p.querier.WithTx(tx)
	for app, source := range sources {
		if err := q.SetInputSource(ctx, SetInputSourceParams{
			App:    string(app),
			Source: string(source),
		}); err != nil {
			return fmt.Errorf("sqlite upsert %q: %w", app, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

// DumpSchema returns the statements that recreate the current schema.
func (p *Persister) DumpSchema(ctx context.Context) ([]string, error) {
	return DumpSchema(ctx, p.querier)
}

func DumpSchema(ctx context.Context, q *Queries) ([]string, error) {
	tables, err := q.DumpTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("dump tables: %w", err)
	}

	rest, err := q.DumpRest(ctx)
	if err != nil {
		return nil, fmt.Errorf("dump non-statements content: %w", err)
	}

	var out []string
	for _, statement := range append(tables, rest...) {
		if statement == nil {
			continue
		}
		out = append(out, *statement)
	}

	return out, nil
}
