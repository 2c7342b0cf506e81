package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// Backup writes a consistent snapshot of the database to w, compressed
// with zstd. The snapshot is taken with VACUUM INTO, so the bot can keep
// writing while it runs.
func (s *Store) Backup(ctx context.Context, w io.Writer) (int64, error) {
	tmp, err := os.MkdirTemp("", "spunky-backup-")
	if err != nil {
		return 0, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	snapshot := filepath.Join(tmp, "snapshot.db")
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", snapshot); err != nil {
		return 0, fmt.Errorf("snapshotting database: %w", err)
	}

	f, err := os.Open(snapshot)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(enc, f)
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("compressing snapshot: %w", err)
	}
	return n, enc.Close()
}

// BackupFile writes a compressed snapshot to path.
func (s *Store) BackupFile(ctx context.Context, path string) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := s.Backup(ctx, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// Restore decompresses a snapshot written by Backup into path.
func Restore(r io.Reader, path string) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, dec); err != nil {
		out.Close()
		return fmt.Errorf("decompressing snapshot: %w", err)
	}
	return out.Close()
}
