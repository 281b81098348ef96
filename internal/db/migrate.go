package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// RunMigrations ensures the archive table exists. This keeps the service
// self-contained without an external migration step.
func RunMigrations(ctx context.Context, conn clickhouse.Conn) error {
	err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS device_activity
(
	id              String,
	environment_id  LowCardinality(String),
	device_id       String,
	device_name     String,
	room_id         String,
	room_name       String,
	state           Bool,
	user_id         Nullable(String),
	user_name       String,
	ts              DateTime64(3, 'UTC'),
	archived_at     DateTime DEFAULT now()
)
ENGINE = ReplacingMergeTree
PARTITION BY toYYYYMM(ts)
ORDER BY (environment_id, ts, device_id, id);
`)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
