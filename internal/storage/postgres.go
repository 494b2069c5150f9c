package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KevinKickass/HomeGateway/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS parameter_readings (
	id         UUID PRIMARY KEY,
	parameter  TEXT NOT NULL,
	key        TEXT NOT NULL,
	kind       TEXT NOT NULL,
	value      TEXT NOT NULL,
	status     TEXT NOT NULL,
	read_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS parameter_readings_parameter_read_at
	ON parameter_readings (parameter, read_at DESC);

CREATE TABLE IF NOT EXISTS parameter_writes (
	id         UUID PRIMARY KEY,
	parameter  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	status     TEXT NOT NULL,
	source     TEXT NOT NULL,
	written_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_events (
	id         UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	client     TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	ip_address TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	success    BOOLEAN NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type PostgresClient struct {
	pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, cfg config.DatabaseConfig) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Connection testen
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool}, nil
}

// Migrate creates the history tables if they do not exist.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.pool.Close()
}

// AppendReadings bulk inserts readings with COPY.
func (p *PostgresClient) AppendReadings(ctx context.Context, readings []Reading) error {
	if len(readings) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(readings))
	for i, r := range readings {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		rows[i] = []interface{}{r.ID, r.Parameter, r.Key, r.Kind, r.Value, r.Status, r.ReadAt}
	}

	_, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"parameter_readings"},
		[]string{"id", "parameter", "key", "kind", "value", "status", "read_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert readings: %w", err)
	}
	return nil
}

// History returns readings of parameter at or after since, newest first.
func (p *PostgresClient) History(ctx context.Context, parameter string, since time.Time, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, parameter, key, kind, value, status, read_at
		FROM parameter_readings
		WHERE parameter = $1 AND read_at >= $2
		ORDER BY read_at DESC
		LIMIT $3
	`, parameter, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0)
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Parameter, &r.Key, &r.Kind, &r.Value, &r.Status, &r.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func (p *PostgresClient) RecordWrite(ctx context.Context, rec WriteRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO parameter_writes (id, parameter, key, value, status, source, written_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, rec.Parameter, rec.Key, rec.Value, rec.Status, rec.Source, rec.WrittenAt)
	if err != nil {
		return fmt.Errorf("failed to record write: %w", err)
	}
	return nil
}

func (p *PostgresClient) RecentWrites(ctx context.Context, limit int) ([]WriteRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, parameter, key, value, status, source, written_at
		FROM parameter_writes
		ORDER BY written_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query writes: %w", err)
	}
	defer rows.Close()

	writes := make([]WriteRecord, 0)
	for rows.Next() {
		var w WriteRecord
		if err := rows.Scan(&w.ID, &w.Parameter, &w.Key, &w.Value, &w.Status, &w.Source, &w.WrittenAt); err != nil {
			return nil, fmt.Errorf("failed to scan write: %w", err)
		}
		writes = append(writes, w)
	}
	return writes, rows.Err()
}

func (p *PostgresClient) LogAuthEvent(ctx context.Context, ev AuthEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO auth_events (id, event_type, client, role, ip_address, user_agent, success, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.ID, ev.EventType, ev.Client, ev.Role, ev.IPAddress, ev.UserAgent, ev.Success, ev.Reason, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log auth event: %w", err)
	}
	return nil
}

func (p *PostgresClient) RecentAuthEvents(ctx context.Context, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, event_type, client, role, ip_address, user_agent, success, reason, created_at
		FROM auth_events
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}
	defer rows.Close()

	events := make([]AuthEvent, 0)
	for rows.Next() {
		var ev AuthEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Client, &ev.Role, &ev.IPAddress, &ev.UserAgent,
			&ev.Success, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
