package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
	"film-scanner/internal/io"
)

// DefaultSettle is how long a file must stay quiet before it is decoded.
// Scanners and cameras often write a frame in several chunks.
const DefaultSettle = 200 * time.Millisecond

// ErrClosed is returned by CaptureFrame after Close.
var ErrClosed = errors.New("capture source closed")

// Frame is one decoded file from a watched folder.
type Frame struct {
	Path   string
	Buffer *core.PixelBuffer
	Err    error
}

// WatchSource turns every image written into a folder into a captured frame.
type WatchSource struct {
	dir     string
	settle  time.Duration
	loader  *io.ImageLoader
	logger  *logrus.Logger
	watcher *fsnotify.Watcher

	frames chan Frame
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewWatchSource starts watching dir. A settle of zero uses DefaultSettle.
func NewWatchSource(dir string, settle time.Duration, logger *logrus.Logger) (*WatchSource, error) {
	logger = core.LoggerOrDiscard(logger)
	if settle <= 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	s := &WatchSource{
		dir:     dir,
		settle:  settle,
		loader:  io.NewImageLoader(logger),
		logger:  logger,
		watcher: watcher,
		frames:  make(chan Frame, 16),
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}

	s.wg.Add(1)
	go s.run()

	logger.WithFields(logrus.Fields{
		"dir":    dir,
		"settle": settle,
	}).Info("Watching folder for new frames")
	return s, nil
}

// Frames delivers every decoded file, including decode failures.
func (s *WatchSource) Frames() <-chan Frame {
	return s.frames
}

// CaptureFrame blocks until the next image lands in the folder.
func (s *WatchSource) CaptureFrame(ctx context.Context) (*core.PixelBuffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	case f := <-s.frames:
		if f.Err != nil {
			return nil, f.Err
		}
		return f.Buffer, nil
	}
}

// Close stops the watcher. Pending files are dropped.
func (s *WatchSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for path, t := range s.pending {
		t.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()

	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *WatchSource) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Warn("Folder watcher error")
		}
	}
}

func (s *WatchSource) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !io.IsSupportedImageFormat(event.Name) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	// Restart the settle window on every write to the same file.
	if t, ok := s.pending[event.Name]; ok {
		t.Stop()
	}
	path := event.Name
	var t *time.Timer
	t = time.AfterFunc(s.settle, func() { s.decode(path, t) })
	s.pending[path] = t
}

// decode loads path once the settle window of fired has passed. A timer
// that was replaced before it could take the lock leaves the file to its
// successor.
func (s *WatchSource) decode(path string, fired *time.Timer) {
	s.mu.Lock()
	if s.closed || s.pending[path] != fired {
		s.mu.Unlock()
		return
	}
	delete(s.pending, path)
	s.mu.Unlock()

	buf, err := s.loader.LoadImage(path)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"file":  filepath.Base(path),
			"error": err,
		}).Warn("Dropped frame could not be decoded")
	}

	select {
	case s.frames <- Frame{Path: path, Buffer: buf, Err: err}:
	case <-s.done:
	}
}
