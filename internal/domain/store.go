package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// TxHistoryStore persists finished transaction records.
type TxHistoryStore interface {
	Insert(ctx context.Context, rec TxRecord) error
	GetByHandle(ctx context.Context, handle string) (TxRecord, error)
	ListByAccount(ctx context.Context, account string, opts ListOpts) ([]TxRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]TxRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PositionSnapshotStore persists per-refresh position snapshots.
type PositionSnapshotStore interface {
	Upsert(ctx context.Context, pos Position) error
	Get(ctx context.Context, account, seriesID string) (Position, error)
	ListByAccount(ctx context.Context, account string) ([]Position, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// SeriesCache caches the bulk-loaded series set.
type SeriesCache interface {
	PutAll(ctx context.Context, series []Series) error
	GetAll(ctx context.Context) ([]Series, error)
	Get(ctx context.Context, id string) (Series, error)
}

// PositionCache caches position snapshots keyed by account and series.
type PositionCache interface {
	Put(ctx context.Context, pos Position) error
	Get(ctx context.Context, account, seriesID string) (Position, error)
	ListByAccount(ctx context.Context, account string) ([]Position, error)
	InvalidateAccount(ctx context.Context, account string) error
}

// SignalBus fans out tracker events to out-of-process consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver exports aged history to blob storage and prunes it locally.
type Archiver interface {
	Archive(ctx context.Context, cutoff time.Time) error
}
