package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"device-activity-service/internal/model"
)

// ArchiveRepository writes activity events to the long-term ClickHouse
// archive. The archive is append-only and never read back into the
// bounded log.
type ArchiveRepository interface {
	// CreateBatch inserts events in a single ClickHouse batch.
	CreateBatch(ctx context.Context, events []model.ActivityEvent) error

	// Ping checks that the archive is reachable.
	Ping(ctx context.Context) error
}

type archiveRepository struct {
	conn clickhouse.Conn
}

// NewArchiveRepository creates an ArchiveRepository backed by ClickHouse.
func NewArchiveRepository(conn clickhouse.Conn) ArchiveRepository {
	return &archiveRepository{conn: conn}
}

const insertActivityQuery = `INSERT INTO device_activity (id, environment_id, device_id, device_name, room_id, room_name, state, user_id, user_name, ts)`

func (r *archiveRepository) CreateBatch(ctx context.Context, events []model.ActivityEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, insertActivityQuery)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.ID,
			e.EnvironmentID,
			e.DeviceID,
			e.DeviceName,
			e.RoomID,
			e.RoomName,
			e.State,
			nullIfEmpty(e.UserID),
			e.UserName,
			eventTime(e),
		)
		if err != nil {
			_ = batch.Abort()
			return fmt.Errorf("append batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (r *archiveRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func eventTime(e model.ActivityEvent) time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

func nullIfEmpty(val string) interface{} {
	if val == "" {
		return nil
	}
	return val
}
