package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
	"film-scanner/internal/enhance"
	"film-scanner/internal/io"
	"film-scanner/internal/storage"
)

// Enhance runs the optional enhancer over the current derived frame. A failed
// or unavailable enhancer leaves the frame untouched and returns the reason;
// a result that arrives after a newer change is dropped.
func (p *Pipeline) Enhance(ctx context.Context) (bool, error) {
	if !p.EnhancementAvailable() {
		return false, core.ErrEnhancementUnavailable
	}

	p.mu.Lock()
	if err := p.requireEditingLocked(); err != nil {
		p.mu.Unlock()
		return false, err
	}
	gen := p.generation
	derived := p.imageData.Derived()
	original := p.imageData.Original()
	geometry := p.settings.Geometry
	p.mu.Unlock()

	res := enhance.Safe(ctx, p.enhancer, derived, p.logger)
	if !res.Applied {
		p.reportError(fmt.Errorf("enhancement skipped: %w", res.Err))
		return false, res.Err
	}
	metricsMap := p.evaluate(original, res.Buffer, geometry)

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.WithField("generation", gen).Debug("PIPELINE: Dropping stale enhancement")
		return false, nil
	}
	if err := p.imageData.SetDerived(res.Buffer); err != nil {
		p.mu.Unlock()
		return false, err
	}
	p.enhanced = true
	p.metrics = metricsMap
	p.mu.Unlock()

	p.logger.WithField("enhancer", p.enhancerName()).Info("PIPELINE: Enhancement applied")
	p.publish(res.Buffer, metricsMap, gen)
	return true, nil
}

// Export encodes the derived frame with its metadata. The original frame is
// included when save_original is set.
func (p *Pipeline) Export(title string) (*storage.Scan, error) {
	p.mu.Lock()
	if err := p.requireEditingLocked(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	derived := p.imageData.Derived()
	original := p.imageData.Original()
	settings := p.settings
	enhanced := p.enhanced
	p.mu.Unlock()

	quality := p.cfg.Quality()
	data, err := io.JPEGBytes(derived, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scan: %w", err)
	}

	scan := &storage.Scan{
		Title:    title,
		Date:     time.Now(),
		Metadata: storage.NewMetadata(settings, enhanced, derived.Width, derived.Height),
		Image:    data,
	}
	if p.cfg.SaveOriginal {
		if scan.Original, err = io.JPEGBytes(original, quality); err != nil {
			return nil, fmt.Errorf("failed to encode original: %w", err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"bytes":    len(data),
		"quality":  quality,
		"enhanced": enhanced,
	}).Debug("PIPELINE: Scan exported")
	return scan, nil
}

// Save exports the derived frame into the configured store.
func (p *Pipeline) Save(ctx context.Context, title string) (string, error) {
	if p.store == nil {
		return "", errors.New("no scan store configured")
	}
	scan, err := p.Export(title)
	if err != nil {
		return "", err
	}
	id, err := p.store.Save(ctx, scan)
	if err != nil {
		p.reportError(err)
		return "", err
	}
	p.logger.WithFields(logrus.Fields{
		"id":    id,
		"title": scan.Title,
	}).Info("PIPELINE: Scan saved")
	return id, nil
}

// OpenScan starts a session on a stored scan. With the original frame stored
// the saved settings are restored for re-editing; otherwise the saved positive
// is loaded as slide film.
func (p *Pipeline) OpenScan(ctx context.Context, scan *storage.Scan) error {
	if scan == nil {
		return storage.ErrInvalidScan
	}
	loader := io.NewImageLoader(p.logger)

	settings := core.DefaultSettings()
	data := scan.Image
	if len(scan.Original) > 0 {
		data = scan.Original
		settings.FilmType = scan.Metadata.FilmType
		settings.Params = scan.Metadata.Params()
		settings.Geometry.FlipHorizontal = scan.Metadata.IsFlipped
		settings.Geometry.Rotate90 = scan.Metadata.IsRotated
	} else {
		settings.FilmType = core.Slide
	}

	buf, err := loader.DecodeBytes(data)
	if err != nil {
		err = fmt.Errorf("scan %s: %w", scan.ID, err)
		p.reportError(err)
		return err
	}
	return p.startSession(ctx, buf, "scan:"+scan.ID, settings, false)
}
