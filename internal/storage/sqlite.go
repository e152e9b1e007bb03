package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"fhunt_bot/internal/model"
	"fhunt_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database. The default DSN
// ":memory:" keeps the journal for the lifetime of the process only.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty database.
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordAlert inserts an alert and populates its ID. A zero SentAt is set
// to the current time.
func (s *SQLite) RecordAlert(ctx context.Context, a *model.Alert) error {
	if a.SentAt.IsZero() {
		a.SentAt = s.now()
	}
	a.SentAt = a.SentAt.UTC().Truncate(time.Second)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (kind, entity_id, title, url, budget, counterparty, sent_day, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.Kind), string(a.EntityID), a.Title, a.URL, a.Budget, a.Counterparty,
		model.DayOf(a.SentAt), a.SentAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// CountByDay returns the number of dispatched alerts per polled category
// for the given day. Every polled category is present in the result.
func (s *SQLite) CountByDay(ctx context.Context, day string) (map[model.Category]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM alerts WHERE sent_day = ? GROUP BY kind`, day,
	)
	if err != nil {
		return nil, fmt.Errorf("count alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.Category]int, len(model.Categories))
	for _, c := range model.Categories {
		counts[c] = 0
	}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		if _, ok := counts[model.Category(kind)]; ok {
			counts[model.Category(kind)] = n
		}
	}
	return counts, rows.Err()
}

// ListAlerts returns up to limit alerts of kind sent on day, newest first.
func (s *SQLite) ListAlerts(ctx context.Context, kind model.Category, day string, limit int) ([]model.Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, entity_id, title, url, budget, counterparty, sent_at
		 FROM alerts WHERE kind = ? AND sent_day = ?
		 ORDER BY id DESC LIMIT ?`,
		string(kind), day, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var alerts []model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

// FindAlert returns the most recent project or search alert for an entity.
func (s *SQLite) FindAlert(ctx context.Context, entityID model.EntityID) (*model.Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, entity_id, title, url, budget, counterparty, sent_at
		 FROM alerts WHERE entity_id = ? AND kind IN (?, ?)
		 ORDER BY id DESC LIMIT 1`,
		string(entityID), string(model.CategoryProject), string(model.KindSearch),
	)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAlert(row scannable) (*model.Alert, error) {
	var a model.Alert
	var kind, entityID, sentAt string
	err := row.Scan(&a.ID, &kind, &entityID, &a.Title, &a.URL, &a.Budget, &a.Counterparty, &sentAt)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	a.Kind = model.Category(kind)
	a.EntityID = model.EntityID(entityID)
	a.SentAt, _ = time.Parse(timeLayout, sentAt)
	return &a, nil
}
