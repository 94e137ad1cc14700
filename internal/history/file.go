package history

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lox/pokertable/internal/fileutil"
	"github.com/lox/pokertable/internal/game"
)

// FileSink writes one TOML file per hand under Dir/table-<id>/.
type FileSink struct {
	Dir string
}

// NewFileSink creates the base directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("history: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: create %s: %w", dir, err)
	}
	return &FileSink{Dir: dir}, nil
}

// Path returns where rec is written.
func (s *FileSink) Path(rec game.HandRecord) string {
	table := rec.TableID
	if table == "" {
		table = "unknown"
	}
	return filepath.Join(s.Dir, "table-"+table, fmt.Sprintf("hand-%06d.toml", rec.HandNumber))
}

func (s *FileSink) Write(ctx context.Context, rec game.HandRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("history: encode hand %d: %w", rec.HandNumber, err)
	}
	return fileutil.WriteFileAtomic(s.Path(rec), buf.Bytes(), 0o644)
}

func (s *FileSink) Close() error { return nil }

// ReadFile loads a record written by FileSink.
func ReadFile(path string) (game.HandRecord, error) {
	var rec game.HandRecord
	if _, err := toml.DecodeFile(path, &rec); err != nil {
		return game.HandRecord{}, fmt.Errorf("history: decode %s: %w", path, err)
	}
	return rec, nil
}

// ListFiles returns the hand files for a table in hand order.
func (s *FileSink) ListFiles(tableID string) ([]string, error) {
	dir := filepath.Join(s.Dir, "table-"+tableID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

var _ Sink = (*FileSink)(nil)
