package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/termfi/vaultd/internal/domain"
)

// HistoryArchiveStore is the narrow slice of the transaction history store
// the archiver needs: time-ranged reads plus the prune that follows a
// verified upload.
type HistoryArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TxRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// HistoryArchiver implements domain.Archiver by exporting aged transaction
// records to JSONL in blob storage and pruning them from the primary store
// once the upload has succeeded. The upload always completes before any row
// is deleted, so a failed upload leaves the history intact.
type HistoryArchiver struct {
	writer  domain.BlobWriter
	history HistoryArchiveStore
	audit   domain.AuditStore // optional
	logger  *slog.Logger
}

// NewHistoryArchiver creates a HistoryArchiver. audit may be nil.
func NewHistoryArchiver(writer domain.BlobWriter, history HistoryArchiveStore, audit domain.AuditStore, logger *slog.Logger) *HistoryArchiver {
	return &HistoryArchiver{
		writer:  writer,
		history: history,
		audit:   audit,
		logger:  logger.With(slog.String("component", "archiver")),
	}
}

// Archive exports every record completed strictly before the cutoff to
// archive/tx_history/YYYY-MM.jsonl, then deletes the exported rows. A cutoff
// with no matching rows is a no-op.
func (a *HistoryArchiver) Archive(ctx context.Context, cutoff time.Time) error {
	recs, err := a.history.ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive history query: %w", err)
	}
	if len(recs) == 0 {
		return nil
	}

	buf, err := marshalJSONL(recs)
	if err != nil {
		return fmt.Errorf("s3blob: archive history marshal: %w", err)
	}

	path := archivePath("tx_history", cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive history upload: %w", err)
	}

	deleted, err := a.history.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("s3blob: archive history prune: %w", err)
	}

	a.logger.Info("history archived",
		slog.String("path", path),
		slog.Int("records", len(recs)),
		slog.Int64("pruned", deleted),
	)

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.tx_history", map[string]any{
			"path":   path,
			"count":  len(recs),
			"pruned": deleted,
			"cutoff": cutoff.Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("s3blob: archive history audit log: %w", err)
		}
	}

	return nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
func archivePath(kind string, cutoff time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, cutoff.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*HistoryArchiver)(nil)
