// Optional best-effort enhancement boundary
package enhance

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
)

// Enhancer improves a finished positive. Implementations may be slow and may
// fail; callers go through Safe so a failure never reaches the pipeline.
type Enhancer interface {
	Enhance(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error)
	// Available is checked before enhancement is offered to the user.
	Available() bool
	Name() string
}

// Result reports what Safe actually did.
type Result struct {
	Buffer  *core.PixelBuffer
	Applied bool
	Err     error
}

// Safe runs e and falls back to buf on any failure, including a missing
// enhancer, an unavailable backend, a cancelled context or a panic.
func Safe(ctx context.Context, e Enhancer, buf *core.PixelBuffer, logger *logrus.Logger) (res Result) {
	logger = core.LoggerOrDiscard(logger)
	res = Result{Buffer: buf}

	if e == nil || !e.Available() {
		res.Err = core.ErrEnhancementUnavailable
		return res
	}
	if err := buf.Validate(); err != nil {
		res.Err = err
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"enhancer": e.Name(),
				"panic":    r,
			}).Error("Enhancer panicked, keeping input")
			res = Result{Buffer: buf, Err: fmt.Errorf("enhancer %s panicked: %v", e.Name(), r)}
		}
	}()

	out, err := e.Enhance(ctx, buf)
	if err == nil {
		err = out.Validate()
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"enhancer": e.Name(),
			"error":    err,
		}).Warn("Enhancement failed, keeping input")
		res.Err = err
		return res
	}

	logger.WithFields(logrus.Fields{
		"enhancer": e.Name(),
		"width":    out.Width,
		"height":   out.Height,
	}).Debug("Enhancement applied")
	return Result{Buffer: out, Applied: true}
}

// Unavailable is the enhancer used when the feature is switched off.
type Unavailable struct{}

func (Unavailable) Enhance(context.Context, *core.PixelBuffer) (*core.PixelBuffer, error) {
	return nil, core.ErrEnhancementUnavailable
}

func (Unavailable) Available() bool { return false }

func (Unavailable) Name() string { return "none" }
