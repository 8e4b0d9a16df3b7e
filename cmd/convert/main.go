// Film Scanner - headless converter
// Converts a captured negative with fixed settings, for batch use and scripting.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/capture"
	"film-scanner/internal/config"
	"film-scanner/internal/core"
	"film-scanner/internal/enhance"
	"film-scanner/internal/io"
	"film-scanner/internal/metrics"
	"film-scanner/internal/opencv"
	"film-scanner/internal/storage"
)

type options struct {
	in       string
	out      string
	film     string
	params   core.AdjustmentParams
	flip     bool
	rotate   bool
	crop     string
	stages   string
	detect   bool
	enhance  bool
	report   bool
	save     bool
	title    string
	camera   bool
	watch    string
	list     bool
	deleteID string
}

func main() {
	var opts options
	defaults := core.DefaultParams()

	flag.StringVar(&opts.in, "in", "", "Input image")
	flag.StringVar(&opts.out, "out", "", "Output JPEG (a directory in -watch mode)")
	flag.StringVar(&opts.film, "film", "", "Film type: color-negative, bw, slide (default from config)")
	flag.IntVar(&opts.params.Brightness, "brightness", defaults.Brightness, "Brightness 0-100")
	flag.IntVar(&opts.params.Contrast, "contrast", defaults.Contrast, "Contrast 0-100")
	flag.IntVar(&opts.params.Saturation, "saturation", defaults.Saturation, "Saturation 0-100")
	flag.IntVar(&opts.params.RedBalance, "red", defaults.RedBalance, "Red balance 0-100")
	flag.IntVar(&opts.params.GreenBalance, "green", defaults.GreenBalance, "Green balance 0-100")
	flag.IntVar(&opts.params.BlueBalance, "blue", defaults.BlueBalance, "Blue balance 0-100")
	flag.BoolVar(&opts.params.RemoveColorCast, "cast", defaults.RemoveColorCast, "Remove the orange mask cast")
	flag.BoolVar(&opts.flip, "flip", false, "Mirror left to right")
	flag.BoolVar(&opts.rotate, "rotate", false, "Rotate 90 degrees clockwise")
	flag.StringVar(&opts.crop, "crop", "", "Crop x,y,w,h in source pixels before converting")
	flag.StringVar(&opts.stages, "stages", strings.Join(algorithms.DefaultSequence, ","), "Comma separated render stages")
	flag.BoolVar(&opts.detect, "detect", false, "Crop to the detected film frame")
	flag.BoolVar(&opts.enhance, "enhance", false, "Run the enhancer on the result")
	flag.BoolVar(&opts.report, "report", false, "Print a JSON quality report")
	flag.BoolVar(&opts.save, "save", false, "Save the result to the scan store")
	flag.StringVar(&opts.title, "title", "", "Title for -save")
	flag.BoolVar(&opts.camera, "camera", false, "Capture from the configured camera instead of -in")
	flag.StringVar(&opts.watch, "watch", "", "Convert every image written into this folder")
	flag.BoolVar(&opts.list, "list", false, "List saved scans")
	flag.StringVar(&opts.deleteID, "delete", "", "Delete a saved scan by id")
	configPath := flag.String("config", "", "Path to a YAML or TOML config file")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := initLogger(*debugMode)
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := &converter{cfg: cfg, logger: logger, opts: opts}
	if err := c.run(ctx); err != nil {
		logger.WithError(err).Error("Conversion failed")
		stop()
		os.Exit(1)
	}
}

type converter struct {
	cfg    *config.Config
	logger *logrus.Logger
	opts   options
	store  storage.Store
}

func (c *converter) run(ctx context.Context) error {
	if c.opts.save || c.opts.list || c.opts.deleteID != "" {
		store, err := storage.NewFileStore(c.cfg.Storage.Dir, c.cfg.Storage.MaxBytes, c.logger)
		if err != nil {
			return err
		}
		c.store = store
	}

	switch {
	case c.opts.list:
		return c.list(ctx)
	case c.opts.deleteID != "":
		return c.store.Delete(ctx, c.opts.deleteID)
	case c.opts.watch != "":
		return c.watchFolder(ctx)
	}

	var src capture.Source
	switch {
	case c.opts.camera:
		src = opencv.NewCamera(c.cfg.Capture.Device, c.logger)
	case c.opts.in != "":
		src = capture.NewFileSource(c.opts.in, c.logger)
	default:
		return fmt.Errorf("one of -in, -camera, -watch, -list or -delete is required")
	}
	defer src.Close()

	frame, err := src.CaptureFrame(ctx)
	if err != nil {
		return err
	}
	out := c.opts.out
	if out == "" && !c.opts.save {
		out = io.DownloadName(c.opts.title, time.Now())
	}
	return c.convert(ctx, frame, out)
}

func (c *converter) settings() (core.Settings, error) {
	settings := core.DefaultSettings()
	settings.FilmType = c.cfg.DefaultFilmType
	if c.opts.film != "" {
		ft, err := core.ParseFilmType(c.opts.film)
		if err != nil {
			return settings, err
		}
		settings.FilmType = ft
	}
	if err := c.opts.params.Validate(); err != nil {
		return settings, err
	}
	settings.Params = c.opts.params
	settings.Geometry.FlipHorizontal = c.opts.flip
	settings.Geometry.Rotate90 = c.opts.rotate
	return settings, nil
}

func (c *converter) cropFrame(frame *core.PixelBuffer) (*core.PixelBuffer, error) {
	var region core.CropRegion
	switch {
	case c.opts.crop != "":
		r, err := parseRegion(c.opts.crop)
		if err != nil {
			return nil, err
		}
		region = r
	case c.opts.detect:
		found, ok, err := opencv.NewFrameDetector(c.logger).Detect(frame)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.logger.Warn("No film frame detected, converting the whole capture")
			return frame, nil
		}
		region = found
	default:
		return frame, nil
	}
	return algorithms.CommitCrop(frame, region, core.Size{}, c.cfg.MinCropSize)
}

func (c *converter) convert(ctx context.Context, frame *core.PixelBuffer, out string) error {
	settings, err := c.settings()
	if err != nil {
		return err
	}
	original, err := c.cropFrame(frame)
	if err != nil {
		return err
	}

	renderer, err := c.renderer()
	if err != nil {
		return err
	}
	result, err := renderer.Render(ctx, original, settings)
	if err != nil {
		return err
	}

	enhanced := false
	if c.opts.enhance {
		res := enhance.Safe(ctx, c.enhancer(), result, c.logger)
		if res.Err != nil {
			c.logger.WithError(res.Err).Warn("Enhancement skipped")
		}
		result, enhanced = res.Buffer, res.Applied
	}

	if c.opts.report {
		reference, err := algorithms.Transform(original, settings.Geometry)
		if err != nil {
			return err
		}
		report := metrics.NewEvaluator().GenerateReport(reference, result)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}

	if out != "" {
		if err := io.NewImageLoader(c.logger).SaveImage(result, out, c.cfg.Quality()); err != nil {
			return err
		}
		c.logger.WithField("path", out).Info("Scan written")
	}

	if c.opts.save {
		return c.saveScan(ctx, original, result, settings, enhanced)
	}
	return nil
}

// renderer registers the configured negative coefficients and builds the
// requested stage sequence from the registry.
func (c *converter) renderer() (*algorithms.Renderer, error) {
	algorithms.Register(algorithms.NewNegativeStage(algorithms.NewNegativeEngine(c.cfg.Negative.Edit, c.logger)))

	names := algorithms.DefaultSequence
	if c.opts.stages != "" {
		names = nil
		for _, name := range strings.Split(c.opts.stages, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	r, err := algorithms.NewRendererFromRegistry(names, c.logger)
	if err != nil {
		return nil, err
	}
	c.logger.WithField("stages", r.Stages()).Debug("Renderer ready")
	return r.WithStepMetrics(metrics.NewEvaluator()), nil
}

func (c *converter) enhancer() enhance.Enhancer {
	switch {
	case !c.cfg.Enhancement.Enabled:
		return enhance.Unavailable{}
	case c.cfg.Enhancement.Backend == config.BackendOpenCV:
		return opencv.NewSharpen()
	default:
		return enhance.NewNatural()
	}
}

func (c *converter) saveScan(ctx context.Context, original, result *core.PixelBuffer, settings core.Settings, enhanced bool) error {
	quality := c.cfg.Quality()
	data, err := io.JPEGBytes(result, quality)
	if err != nil {
		return err
	}
	scan := &storage.Scan{
		Title:    c.opts.title,
		Date:     time.Now(),
		Metadata: storage.NewMetadata(settings, enhanced, result.Width, result.Height),
		Image:    data,
	}
	if c.cfg.SaveOriginal {
		if scan.Original, err = io.JPEGBytes(original, quality); err != nil {
			return err
		}
	}
	id, err := c.store.Save(ctx, scan)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func (c *converter) watchFolder(ctx context.Context) error {
	if c.opts.out == "" {
		return fmt.Errorf("-watch needs -out to name the output folder")
	}
	if err := os.MkdirAll(c.opts.out, 0o755); err != nil {
		return err
	}
	w, err := capture.NewWatchSource(c.opts.watch, capture.DefaultSettle, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	c.logger.WithField("dir", c.opts.watch).Info("Watching for new frames")
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-w.Frames():
			if f.Err != nil {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)) + ".jpg"
			if err := c.convert(ctx, f.Buffer, filepath.Join(c.opts.out, name)); err != nil {
				c.logger.WithError(err).WithField("file", f.Path).Error("Conversion failed")
			}
		}
	}
}

func (c *converter) list(ctx context.Context) error {
	scans, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFILM\tSIZE\tDATE")
	for _, s := range scans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%s\n", s.ID, s.Title, s.Metadata.FilmType,
			s.Metadata.Width, s.Metadata.Height, s.Date.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// parseRegion reads "x,y,w,h".
func parseRegion(s string) (core.CropRegion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return core.CropRegion{}, fmt.Errorf("crop %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return core.CropRegion{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = f
	}
	return core.CropRegion{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
