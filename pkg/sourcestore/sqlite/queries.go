package sqlite

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type InputSource struct {
	App    string
	Source string
}

const getInputSources = `select app, source from input_sources`

func (q *Queries) GetInputSources(ctx context.Context) ([]InputSource, error) {
	rows, err := q.db.QueryContext(ctx, getInputSources)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InputSource
	for rows.Next() {
		var i InputSource
		if err := rows.Scan(&i.App, &i.Source); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setInputSource = `insert into input_sources (app, source, updated_at)
values (?, ?, unixepoch())
on conflict (app) do update set source = excluded.source, updated_at = excluded.updated_at
where input_sources.source != excluded.source`

type SetInputSourceParams struct {
	App    string
	Source string
}

func (q *Queries) SetInputSource(ctx context.Context, arg SetInputSourceParams) error {
	_, err := q.db.ExecContext(ctx, setInputSource, arg.App, arg.Source)
	return err
}

const dumpTables = `select sql from sqlite_master
where type = 'table' and name not like 'sqlite_%'
order by name`

func (q *Queries) DumpTables(ctx context.Context) ([]*string, error) {
	return q.dump(ctx, dumpTables)
}

const dumpRest = `select sql from sqlite_master
where type != 'table' and sql is not null and name not like 'sqlite_%'
order by name`

func (q *Queries) DumpRest(ctx context.Context) ([]*string, error) {
	return q.dump(ctx, dumpRest)
}

func (q *Queries) dump(ctx context.Context, query string) ([]*string, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*string
	for rows.Next() {
		var statement sql.NullString
		if err := rows.Scan(&statement); err != nil {
			return nil, err
		}
		if !statement.Valid {
			items = append(items, nil)
			continue
		}
		s := statement.String
		items = append(items, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
