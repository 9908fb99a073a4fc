package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileJournal stores each event as a JSON file under
// <dir>/<escaped identity>/<timestamp>-<id>.json.
type FileJournal struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileJournal creates a file-based journal rooted at baseDir
func NewFileJournal(baseDir string) *FileJournal {
	return &FileJournal{baseDir: baseDir}
}

// DefaultDir returns the default journal directory
func DefaultDir() string {
	if dir := os.Getenv("KEYPROXY_AUDIT_DIR"); dir != "" {
		return dir
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "keyproxy", "audit")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "keyproxy", "audit")
	}
	return filepath.Join(os.TempDir(), "keyproxy", "audit")
}

// Record writes event to its own file. Existing files are never modified.
func (j *FileJournal) Record(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid audit event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	dir := j.identityDir(event.Identity)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", event.Timestamp.UTC().Format("20060102T150405.000000000Z"), event.ID)
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create audit file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write audit file: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync audit file: %w", err)
	}
	return f.Close()
}

// List returns identity's most recent events.
func (j *FileJournal) List(ctx context.Context, identity string, limit int) ([]Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	dir := j.identityDir(identity)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit directory: %w", err)
	}

	// File names start with a fixed-width timestamp, so name order is time order
	sort.Slice(files, func(a, b int) bool {
		return files[a].Name() > files[b].Name()
	})

	limit = normalizeLimit(limit)
	events := []Event{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read audit file %s: %w", file.Name(), err)
		}
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("failed to parse audit file %s: %w", file.Name(), err)
		}
		if event.Identity != identity {
			continue
		}

		events = append(events, event)
		if len(events) >= limit {
			break
		}
	}
	return events, nil
}

func (j *FileJournal) identityDir(identity string) string {
	name := url.PathEscape(identity)
	if name == "." || name == ".." {
		name = strings.ReplaceAll(name, ".", "%2E")
	}
	return filepath.Join(j.baseDir, name)
}
