// Frame sources handing snapshot buffers to the pipeline
package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
	"film-scanner/internal/io"
)

// Source produces one captured frame per call. The returned buffer belongs to
// the caller; a source never keeps a reference to it.
type Source interface {
	CaptureFrame(ctx context.Context) (*core.PixelBuffer, error)
	Close() error
}

// FileSource captures by decoding a file from disk on every call.
type FileSource struct {
	path   string
	loader *io.ImageLoader
	logger *logrus.Logger
}

// NewFileSource creates a source for a single image file.
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	logger = core.LoggerOrDiscard(logger)
	return &FileSource{
		path:   path,
		loader: io.NewImageLoader(logger),
		logger: logger,
	}
}

// Path returns the file the source decodes.
func (s *FileSource) Path() string {
	return s.path
}

func (s *FileSource) CaptureFrame(ctx context.Context) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := s.loader.LoadImage(s.path)
	if err != nil {
		return nil, fmt.Errorf("capture from file: %w", err)
	}
	return buf, nil
}

func (s *FileSource) Close() error { return nil }

// BufferSource replays in-memory frames in order and then repeats the last one.
// It backs synthetic captures in tests and demos.
type BufferSource struct {
	mu     sync.Mutex
	frames []*core.PixelBuffer
	next   int
}

// NewBufferSource copies frames so later edits by the caller are not seen.
func NewBufferSource(frames ...*core.PixelBuffer) *BufferSource {
	s := &BufferSource{}
	for _, f := range frames {
		s.frames = append(s.frames, f.Clone())
	}
	return s
}

func (s *BufferSource) CaptureFrame(ctx context.Context) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return nil, core.ErrNoImage
	}
	i := s.next
	if i >= len(s.frames) {
		i = len(s.frames) - 1
	} else {
		s.next++
	}
	return s.frames[i].Clone(), nil
}

func (s *BufferSource) Close() error { return nil }
