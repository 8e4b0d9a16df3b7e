// Film Scanner - desktop application
// Captures film negatives and slides and turns them into editable positives.

package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/capture"
	"film-scanner/internal/config"
	"film-scanner/internal/gui"
	"film-scanner/internal/metrics"
	"film-scanner/internal/opencv"
	"film-scanner/internal/pipeline"
	"film-scanner/internal/storage"
)

const (
	AppName    = "Film Scanner"
	AppID      = "com.filmscanner.app"
	AppVersion = "1.0.0"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	configPath := flag.String("config", "", "Path to a YAML or TOML config file")
	framePath := flag.String("file", "", "Capture from this image file instead of the camera")
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Info("Starting Film Scanner")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	store, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.MaxBytes, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open scan store")
	}

	evaluator := metrics.NewEvaluator()
	opts := []pipeline.Option{
		pipeline.WithEvaluator(evaluator),
		pipeline.WithStore(store),
		pipeline.WithDispatcher(fyne.Do),
	}
	if cfg.Enhancement.Enabled && cfg.Enhancement.Backend == config.BackendOpenCV {
		opts = append(opts, pipeline.WithEnhancer(opencv.NewSharpen()))
	}
	if cfg.Capture.AutoDetect {
		opts = append(opts, pipeline.WithCropSuggester(opencv.NewFrameDetector(logger)))
	}
	scanner := pipeline.New(cfg, logger, opts...)

	var source capture.Source
	if *framePath != "" {
		source = capture.NewFileSource(*framePath, logger)
	} else {
		source = opencv.NewCamera(cfg.Capture.Device, logger)
	}

	var watch *capture.WatchSource
	if cfg.Capture.WatchDir != "" {
		watch, err = capture.NewWatchSource(cfg.Capture.WatchDir, capture.DefaultSettle, logger)
		if err != nil {
			logger.WithError(err).Warn("Folder watch disabled")
			watch = nil
		}
	}

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.MediaPhotoIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, gui.Options{
		Pipeline:  scanner,
		Evaluator: evaluator,
		Store:     store,
		Source:    source,
		Watch:     watch,
		Logger:    logger,
	})
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
