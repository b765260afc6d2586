// Package database persists completed leads into Postgres through the
// shared sqlx connection.
package database

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trilokanam-ux/trilokana-telegram-bot/leads"
	"github.com/trilokanam-ux/trilokana-telegram-bot/sink"
)

const insertLead = `
	INSERT INTO leads (id, captured_at, option, name, email, phone, query)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Sink writes one row per lead into the leads table.
type Sink struct {
	db *sqlx.DB
}

// New wraps an already-connected database handle.
func New(db *sqlx.DB) *Sink {
	return &Sink{db: db}
}

// Append inserts the record. The id column is the primary key, so a
// retried submission of the same record cannot produce a duplicate row.
func (s *Sink) Append(ctx context.Context, rec leads.Record) error {
	_, err := s.db.ExecContext(ctx, insertLead,
		rec.ID, rec.CapturedAt, rec.Option, rec.Name, rec.Email, rec.Phone, rec.Query,
	)
	if err != nil {
		return sink.E("db.insert", err)
	}
	return nil
}
