package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
	"film-scanner/internal/io"
	"film-scanner/internal/storage"
)

func TestExportCarriesMetadata(t *testing.T) {
	cfg := testConfig(t, 5*time.Millisecond)
	p := New(cfg, nil, WithRenderer(&stubRenderer{}))
	defer p.Close()
	require.NoError(t, p.LoadFrame(context.Background(), gradient(t, 30, 20), "test"))

	params := core.DefaultParams()
	params.Brightness = 70
	params.Saturation = 40
	require.NoError(t, p.SetParams(params))
	require.NoError(t, p.ToggleRotate())
	waitSettled(t, p)

	scan, err := p.Export("")
	require.NoError(t, err)
	assert.Empty(t, scan.Original, "originals are only kept when configured")
	assert.Equal(t, core.ColorNegative, scan.Metadata.FilmType)
	assert.Equal(t, 70, scan.Metadata.Brightness)
	assert.Equal(t, 40, scan.Metadata.Saturation)
	assert.True(t, scan.Metadata.IsRotated)
	assert.False(t, scan.Metadata.IsFlipped)
	assert.False(t, scan.Metadata.AIEnhanced)
	assert.Equal(t, 20, scan.Metadata.Width)
	assert.Equal(t, 30, scan.Metadata.Height)

	decoded, err := io.NewImageLoader(nil).DecodeBytes(scan.Image)
	require.NoError(t, err)
	assert.Equal(t, 20, decoded.Width)
	assert.Equal(t, 30, decoded.Height)
}

func TestSaveAndReopen(t *testing.T) {
	cfg := testConfig(t, 5*time.Millisecond)
	cfg.SaveOriginal = true
	store, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.MaxBytes, nil)
	require.NoError(t, err)

	p := New(cfg, nil, WithStore(store))
	defer p.Close()
	ctx := context.Background()
	require.NoError(t, p.LoadFrame(ctx, gradient(t, 24, 24), "test"))
	require.NoError(t, p.SetFilmType(core.BlackAndWhite))
	require.NoError(t, p.ToggleFlip())
	waitSettled(t, p)
	_, err = p.Enhance(ctx)
	require.NoError(t, err)

	id, err := p.Save(ctx, "Roll 3")
	require.NoError(t, err)

	scans, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "Roll 3", scans[0].Title)
	assert.True(t, scans[0].Metadata.AIEnhanced)

	saved, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.Original)

	p.Rescan()
	require.NoError(t, p.OpenScan(ctx, saved))
	s := p.Settings()
	assert.Equal(t, core.BlackAndWhite, s.FilmType)
	assert.True(t, s.Geometry.FlipHorizontal)
	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, 24, p.Original().Width)
}

func TestOpenScanWithoutOriginalIsSlide(t *testing.T) {
	p := New(testConfig(t, 5*time.Millisecond), nil)
	defer p.Close()

	data, err := io.JPEGBytes(gradient(t, 16, 8), 90)
	require.NoError(t, err)
	scan := &storage.Scan{ID: "abc", Image: data, Metadata: storage.Metadata{FilmType: core.ColorNegative, Brightness: 80}}

	require.NoError(t, p.OpenScan(context.Background(), scan))
	s := p.Settings()
	assert.Equal(t, core.Slide, s.FilmType)
	assert.Equal(t, core.DefaultParams(), s.Params)
	assert.Equal(t, 16, p.Derived().Width)
	assert.Equal(t, 8, p.Derived().Height)
}

func TestOpenScanDecodeFailure(t *testing.T) {
	p := New(testConfig(t, 5*time.Millisecond), nil)
	defer p.Close()
	err := p.OpenScan(context.Background(), &storage.Scan{ID: "bad", Image: []byte("nope")})
	assert.ErrorIs(t, err, core.ErrDecode)
	assert.Equal(t, StateIdle, p.State())
}

func TestSaveWithoutStore(t *testing.T) {
	p := New(testConfig(t, 5*time.Millisecond), nil)
	defer p.Close()
	require.NoError(t, p.LoadFrame(context.Background(), gradient(t, 4, 4), "test"))
	_, err := p.Save(context.Background(), "x")
	assert.Error(t, err)
}
