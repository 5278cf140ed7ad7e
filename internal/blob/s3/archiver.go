package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riftline/tradecore/internal/domain"
)

// Archiver implements the trade-ledger retention sweep described in
// SPEC_FULL.md §9.1: closed/canceled trades older than a configured cutoff
// are serialized to newline-delimited JSON and uploaded to S3, mirroring the
// teacher's pipeline/archiver.go + blob/s3/archiver.go pairing. Deletion of
// the archived rows from the ledger is a separate, explicit step the caller
// takes only after the upload succeeds -- Sweep never deletes on its own.
type Archiver struct {
	writer *Writer
	ledger domain.TradeLedger
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer *Writer, ledger domain.TradeLedger) *Archiver {
	return &Archiver{writer: writer, ledger: ledger}
}

// Sweep queries the closed and canceled trade ledger rows with an entry time
// strictly before the cutoff (open and pending rows are skipped), serializes
// them to JSONL, and uploads the file to S3 at
// archive/trades/YYYY-MM.jsonl. It returns the number of rows archived; zero
// rows is not an error. Callers that want the archived rows removed from the
// ledger should call domain.TradeLedger.DeleteBefore with the same cutoff
// only after Sweep returns successfully.
func (a *Archiver) Sweep(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.ledger.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(trades)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	return int64(len(trades)), nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
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
