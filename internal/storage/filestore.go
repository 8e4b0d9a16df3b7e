package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
)

// Store is the persistence boundary for finished scans.
type Store interface {
	Save(ctx context.Context, scan *Scan) (string, error)
	List(ctx context.Context) ([]Scan, error)
	Get(ctx context.Context, id string) (*Scan, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

const (
	recordExt   = ".json"
	imageExt    = ".jpg"
	originalExt = ".original.jpg"
)

// FileStore keeps each scan as <id>.json plus <id>.jpg (and optionally
// <id>.original.jpg) in one directory.
type FileStore struct {
	mu       sync.Mutex
	dir      string
	maxBytes int
	logger   *logrus.Logger
	now      func() time.Time
}

// NewFileStore creates a store rooted at dir, creating it if needed.
// maxBytes <= 0 disables size optimisation.
func NewFileStore(dir string, maxBytes int, logger *logrus.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStore{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   core.LoggerOrDiscard(logger),
		now:      time.Now,
	}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes scan and returns its id. A missing id is generated, a missing
// title or date is filled in. Oversized images are optimised; if that fails
// the image is stored as given.
func (s *FileStore) Save(ctx context.Context, scan *Scan) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if scan == nil || len(scan.Image) == 0 {
		return "", fmt.Errorf("%w: no image data", ErrInvalidScan)
	}

	record := *scan
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if err := validateID(record.ID); err != nil {
		return "", err
	}
	if record.Date.IsZero() {
		record.Date = s.now()
	}
	if strings.TrimSpace(record.Title) == "" {
		record.Title = DefaultTitle(record.Date)
	}

	logger := s.logger.WithField("scan_id", record.ID)
	if optimized, err := Optimize(record.Image, s.maxBytes); err != nil {
		logger.WithError(err).Warn("Image optimisation failed, storing original bytes")
	} else if len(optimized) != len(record.Image) {
		logger.WithFields(logrus.Fields{
			"before_bytes": len(record.Image),
			"after_bytes":  len(optimized),
		}).Info("Image optimised for storage")
		record.Image = optimized
	}

	meta, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode scan %s: %w", record.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(record.ID+imageExt, record.Image); err != nil {
		return "", err
	}
	if len(record.Original) > 0 {
		if err := s.writeFile(record.ID+originalExt, record.Original); err != nil {
			return "", err
		}
	}
	// The record goes last so List never sees a scan whose image is missing.
	if err := s.writeFile(record.ID+recordExt, meta); err != nil {
		return "", err
	}

	logger.WithFields(logrus.Fields{
		"title": record.Title,
		"bytes": len(record.Image),
	}).Info("Scan saved")
	return record.ID, nil
}

// writeFile replaces name atomically via a temp file in the same directory.
func (s *FileStore) writeFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// List returns every scan, newest first, without image bytes.
func (s *FileStore) List(ctx context.Context) ([]Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}

	scans := make([]Scan, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		record, err := s.readRecord(strings.TrimSuffix(name, recordExt))
		if err != nil {
			s.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable scan record")
			continue
		}
		scans = append(scans, *record)
	}

	sort.SliceStable(scans, func(i, j int) bool {
		return scans[i].Date.After(scans[j].Date)
	})
	return scans, nil
}

func (s *FileStore) readRecord(id string) (*Scan, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+recordExt))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read scan %s: %w", id, err)
	}
	var record Scan
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode scan %s: %w", id, err)
	}
	record.ID = id
	return &record, nil
}

// Get returns one scan with its image bytes.
func (s *FileStore) Get(ctx context.Context, id string) (*Scan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if record.Image, err = os.ReadFile(filepath.Join(s.dir, id+imageExt)); err != nil {
		return nil, fmt.Errorf("read image for scan %s: %w", id, err)
	}
	if original, err := os.ReadFile(filepath.Join(s.dir, id+originalExt)); err == nil {
		record.Original = original
	}
	return record, nil
}

// Delete removes one scan and its images.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, id+recordExt)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete scan %s: %w", id, err)
	}
	for _, ext := range []string{imageExt, originalExt} {
		if err := os.Remove(filepath.Join(s.dir, id+ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).WithField("scan_id", id).Warn("Could not remove scan image")
		}
	}
	s.logger.WithField("scan_id", id).Info("Scan deleted")
	return nil
}

// Clear removes every scan in the store.
func (s *FileStore) Clear(ctx context.Context) error {
	scans, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, scan := range scans {
		if err := s.Delete(ctx, scan.ID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	s.logger.WithField("count", len(scans)).Info("Scans cleared")
	return nil
}
