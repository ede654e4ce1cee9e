// Package postgres persists compile events to a compile_events table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/ScriptGraph/internal/config"
)

// Limits applied by Query.
const (
	DefaultQueryLimit = 200
	MaxQueryLimit     = 10000
)

// EventRow represents an event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	ServiceID string                 `json:"service_id"`
	RequestID *string                `json:"request_id,omitempty"`
}

// Client manages the Postgres connection for event storage.
type Client struct {
	db        *sql.DB
	serviceID string
}

// ConnString builds a lib/pq connection string from PGHOST, PGPORT,
// PGUSER, PGDATABASE, PGSSLMODE and PGPASSWORD (or PGPASSWORD_FILE).
func ConnString() (string, error) {
	host := config.EnvOr("PGHOST", "127.0.0.1")
	port := config.EnvOr("PGPORT", "5432")
	user := config.EnvOr("PGUSER", "scriptgraph")
	dbname := config.EnvOr("PGDATABASE", "scriptgraph")
	sslmode := config.EnvOr("PGSSLMODE", "disable")

	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return "", err
	}

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode), nil
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode), nil
}

// New connects using the PG* environment variables and creates the
// compile_events table if needed.
func New(ctx context.Context, serviceID string) (*Client, error) {
	connStr, err := ConnString()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := NewWithDB(db, serviceID)
	if err := client.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create compile_events table: %w", err)
	}

	return client, nil
}

// NewWithDB wraps an already opened database. The table is not created.
func NewWithDB(db *sql.DB, serviceID string) *Client {
	return &Client{db: db, serviceID: serviceID}
}

func (c *Client) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS compile_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			service_id TEXT NOT NULL,
			request_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_compile_events_ts ON compile_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_compile_events_request_id ON compile_events(request_id);
	`
	_, err := c.db.ExecContext(ctx, query)
	return err
}

// Ping reports whether the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Append inserts an event into the database.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, requestID string) error {
	// lib/pq sends []byte as bytea, which jsonb rejects; pass text.
	var fieldsJSON *string
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
		s := string(b)
		fieldsJSON = &s
	}

	query := `
		INSERT INTO compile_events (ts, level, event, msg, fields, service_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.Exec(query, ts, level, event, nullable(msg), fieldsJSON, c.serviceID, nullable(requestID))
	return err
}

// Query returns the last limit events of this service, newest first.
// limit is clamped to [1, MaxQueryLimit]; zero or less means DefaultQueryLimit.
func (c *Client) Query(ctx context.Context, limit int) ([]EventRow, error) {
	query := `
		SELECT event_id, ts, level, event, msg, fields, service_id, request_id
		FROM compile_events
		WHERE service_id = $1
		ORDER BY ts DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, query, c.serviceID, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, requestID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.ServiceID, &requestID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if requestID.Valid {
			e.RequestID = &requestID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
