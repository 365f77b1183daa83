package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists reservations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reservations (
			confirmation TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			origin_city TEXT NOT NULL,
			destination_city TEXT NOT NULL,
			departure_date TEXT NOT NULL,
			return_date TEXT NOT NULL DEFAULT '',
			passengers INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_session ON reservations (session_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, r Reservation) (Reservation, error) {
	now := time.Now().UTC()
	if r.Confirmation == "" {
		r.Confirmation = NewConfirmation()
		r.CreatedAt = now
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.Status == "" {
		r.Status = StatusBooked
	}
	r.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO reservations (confirmation, session_id, origin_city, destination_city, departure_date, return_date, passengers, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (confirmation) DO UPDATE SET
			origin_city = EXCLUDED.origin_city,
			destination_city = EXCLUDED.destination_city,
			departure_date = EXCLUDED.departure_date,
			return_date = EXCLUDED.return_date,
			passengers = EXCLUDED.passengers,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`,
		r.Confirmation,
		r.SessionID,
		r.OriginCity,
		r.DestinationCity,
		r.DepartureDate,
		r.ReturnDate,
		r.Passengers,
		r.Status,
		r.CreatedAt,
		r.UpdatedAt,
	)
	if err != nil {
		return Reservation{}, fmt.Errorf("save reservation: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) Get(ctx context.Context, confirmation string) (Reservation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT confirmation, session_id, origin_city, destination_city, departure_date, return_date, passengers, status, created_at, updated_at
		 FROM reservations WHERE confirmation = $1`,
		strings.ToUpper(strings.TrimSpace(confirmation)),
	)
	var r Reservation
	err := row.Scan(&r.Confirmation, &r.SessionID, &r.OriginCity, &r.DestinationCity, &r.DepartureDate, &r.ReturnDate, &r.Passengers, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	if err != nil {
		return Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) BySession(ctx context.Context, sessionID string) ([]Reservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT confirmation, session_id, origin_city, destination_city, departure_date, return_date, passengers, status, created_at, updated_at
		 FROM reservations WHERE session_id = $1 ORDER BY created_at`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query session reservations: %w", err)
	}
	return scanAll(rows)
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT confirmation, session_id, origin_city, destination_city, departure_date, return_date, passengers, status, created_at, updated_at
		 FROM reservations ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent reservations: %w", err)
	}
	items, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func scanAll(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()
	var items []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.Confirmation, &r.SessionID, &r.OriginCity, &r.DestinationCity, &r.DepartureDate, &r.ReturnDate, &r.Passengers, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
