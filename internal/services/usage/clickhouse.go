package usage

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// ClickHouseConfig holds ClickHouse connection configuration
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	UseTLS   bool
}

// NewClickHouseConn creates a new ClickHouse connection using HTTP protocol
func NewClickHouseConn(cfg *ClickHouseConfig) (driver.Conn, error) {
	// Use HTTP protocol (port 8123) instead of native (port 9000) for better compatibility
	opts := &clickhouse.Options{
		Addr:     []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Protocol: clickhouse.HTTP,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	}

	if cfg.UseTLS {
		opts.TLS = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Analytics writes usage events to ClickHouse for dashboarding. Postgres
// remains the billing source of truth; this sink is append-only and
// best-effort.
type Analytics struct {
	conn driver.Conn
}

// NewAnalytics creates a new ClickHouse-backed analytics sink
func NewAnalytics(conn driver.Conn) *Analytics {
	return &Analytics{conn: conn}
}

// EnsureSchema creates the usage events table if it does not exist
func (a *Analytics) EnsureSchema(ctx context.Context) error {
	return a.conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS usage_events (
            ProjectId UUID,
            Provider LowCardinality(String),
            Model LowCardinality(String),
            PromptTokens Int64,
            CompletionTokens Int64,
            Timestamp DateTime64(3)
        )
        ENGINE = MergeTree
        ORDER BY (ProjectId, Timestamp)
    `)
}

// InsertEvent appends one usage event
func (a *Analytics) InsertEvent(ctx context.Context, record *UsageRecord) error {
	return a.conn.Exec(ctx, `
        INSERT INTO usage_events (ProjectId, Provider, Model, PromptTokens, CompletionTokens, Timestamp)
        VALUES (?, ?, ?, ?, ?, ?)
    `, record.ProjectID, record.Provider, record.Model, record.PromptTokens, record.CompletionTokens, record.CreatedAt)
}

// DailyTotal is one day of aggregated usage for a project.
type DailyTotal struct {
	Day              time.Time
	Requests         uint64
	PromptTokens     int64
	CompletionTokens int64
}

// DailyTotals returns per-day aggregates for a project over a time range.
func (a *Analytics) DailyTotals(ctx context.Context, projectID uuid.UUID, start, end time.Time) ([]DailyTotal, error) {
	rows, err := a.conn.Query(ctx, `
        SELECT
            toStartOfDay(Timestamp) AS Day,
            count() AS Requests,
            sum(PromptTokens) AS PromptTokens,
            sum(CompletionTokens) AS CompletionTokens
        FROM usage_events
        WHERE ProjectId = ? AND Timestamp >= ? AND Timestamp <= ?
        GROUP BY Day
        ORDER BY Day
    `, projectID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var t DailyTotal
		if err := rows.Scan(&t.Day, &t.Requests, &t.PromptTokens, &t.CompletionTokens); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}
