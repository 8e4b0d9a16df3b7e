package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func jpegBytes(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(7)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255}
			if noisy {
				seed = seed*1664525 + 1013904223
				c = color.NRGBA{R: uint8(seed >> 24), G: uint8(seed >> 16), B: uint8(seed >> 8), A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var out bytes.Buffer
	require.NoError(t, jpeg.Encode(&out, img, &jpeg.Options{Quality: 95}))
	return out.Bytes()
}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), DefaultMaxBytes, nil)
	require.NoError(t, err)
	return s
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	img := jpegBytes(t, 32, 24, false)

	settings := core.DefaultSettings()
	settings.Params.Brightness = 70
	settings.Geometry.FlipHorizontal = true

	id, err := s.Save(ctx, &Scan{
		Title:    "Roll 1",
		Image:    img,
		Original: []byte("raw"),
		Metadata: NewMetadata(settings, true, 32, 24),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Roll 1", got.Title)
	assert.Equal(t, img, got.Image)
	assert.Equal(t, []byte("raw"), got.Original)
	assert.Equal(t, core.ColorNegative, got.Metadata.FilmType)
	assert.Equal(t, 70, got.Metadata.Brightness)
	assert.True(t, got.Metadata.IsFlipped)
	assert.True(t, got.Metadata.AIEnhanced)
	assert.Equal(t, settings.Params, got.Metadata.Params())
	assert.False(t, got.Date.IsZero())
}

func TestMetadataIsFlatJSON(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	settings := core.DefaultSettings()
	settings.FilmType = core.BlackAndWhite
	id, err := s.Save(ctx, &Scan{Image: jpegBytes(t, 8, 8, false), Metadata: NewMetadata(settings, false, 8, 8)})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(s.Dir(), id+".json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	meta := doc["metadata"].(map[string]any)
	assert.Equal(t, "black-white", meta["filmType"])
	assert.Equal(t, false, meta["aiEnhanced"])
	assert.NotContains(t, doc, "Image")
}

func TestDefaultsFilledIn(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	s.now = func() time.Time { return time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC) }

	id, err := s.Save(ctx, &Scan{Image: jpegBytes(t, 8, 8, false)})
	require.NoError(t, err)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Film Scan 2024-05-17", got.Title)
	assert.True(t, got.Date.Equal(s.now()))
	assert.Nil(t, got.Original)
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"old", "newest", "middle"} {
		offset := map[string]int{"old": 0, "newest": 48, "middle": 24}[title]
		_, err := s.Save(ctx, &Scan{
			ID:    "scan-" + string(rune('a'+i)),
			Title: title,
			Date:  base.Add(time.Duration(offset) * time.Hour),
			Image: jpegBytes(t, 4, 4, false),
		})
		require.NoError(t, err)
	}

	scans, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.Equal(t, []string{"newest", "middle", "old"}, []string{scans[0].Title, scans[1].Title, scans[2].Title})
	assert.Nil(t, scans[0].Image, "list does not load pixels")
}

func TestSaveOverwritesSameID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Save(ctx, &Scan{ID: "fixed", Title: "first", Image: jpegBytes(t, 4, 4, false)})
	require.NoError(t, err)
	_, err = s.Save(ctx, &Scan{ID: "fixed", Title: "second", Image: jpegBytes(t, 4, 4, false)})
	require.NoError(t, err)

	scans, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 1)
	assert.Equal(t, "second", scans[0].Title)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Save(ctx, &Scan{Image: jpegBytes(t, 4, 4, false), Original: []byte{1}})
	require.NoError(t, err)
	_, err = s.Save(ctx, &Scan{Image: jpegBytes(t, 4, 4, false)})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, a))
	_, err = s.Get(ctx, a)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a), ErrNotFound)
	_, statErr := os.Stat(filepath.Join(s.Dir(), a+".original.jpg"))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, s.Clear(ctx))
	scans, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Save(ctx, &Scan{})
	assert.ErrorIs(t, err, ErrInvalidScan)
	_, err = s.Save(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidScan)
	_, err = s.Save(ctx, &Scan{ID: "../escape", Image: []byte{1}})
	assert.ErrorIs(t, err, ErrInvalidScan)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidScan)
	assert.ErrorIs(t, s.Delete(ctx, "a/b"), ErrInvalidScan)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Save(cancelled, &Scan{Image: []byte{1}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Save(ctx, &Scan{Image: jpegBytes(t, 4, 4, false)})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0o644))

	scans, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
}

func TestSaveOptimisesLargeImages(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), 60_000, nil)
	require.NoError(t, err)

	big := jpegBytes(t, 800, 600, true)
	require.Greater(t, len(big), 60_000)

	id, err := s.Save(ctx, &Scan{Image: big})
	require.NoError(t, err)
	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Less(t, len(got.Image), len(big))
}
