package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/config"
	"github.com/nvr-ai/go-detect/inference/detectors"
	"github.com/nvr-ai/go-detect/logging"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/overlay"
	"github.com/nvr-ai/go-detect/pipeline"
	"github.com/nvr-ai/go-detect/profiler"
	"github.com/nvr-ai/go-detect/video"
)

// Supported still image extensions.
var supportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// closingDetector is a detector that holds a model open.
type closingDetector interface {
	pipeline.Detector
	Close() error
}

func main() {
	app := newApp()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "go-detect: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "go-detect",
		Usage:  "real-time object detection and annotation on a video stream",
		Flags:  commandFlags(),
		Action: runCommand,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run detection on the configured source until it ends or q is pressed",
				Flags:  commandFlags(),
				Action: runCommand,
			},
			{
				Name:      "image",
				Usage:     "annotate a single image and save it as PNG",
				ArgsUsage: "<path>",
				Flags:     commandFlags(),
				Action:    imageCommand,
			},
			{
				Name:   "classes",
				Usage:  "print the class table with display colors",
				Flags:  commandFlags(),
				Action: classesCommand,
			},
		},
	}
}

// commandFlags returns a fresh set of the configuration flags. The app and every command
// register their own copy, so flags are accepted before or after the command name.
func commandFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "camera device index or video path"},
		&cli.StringFlag{Name: "frames-dir", Usage: "directory of frame-<N> images to replay"},
		&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "YOLO ONNX model path"},
		&cli.StringFlag{Name: "backend", Usage: "inference backend: onnxruntime or opencv"},
		&cli.StringFlag{Name: "model-family", Usage: "class table: yolo, coco or voc"},
		&cli.Float64Flag{Name: "confidence", Usage: "confidence threshold before suppression"},
		&cli.Float64Flag{Name: "iou", Usage: "IoU threshold of non-maximum suppression"},
		&cli.BoolFlag{Name: "class-aware", Usage: "only suppress boxes of the same class"},
		&cli.StringSliceFlag{Name: "classes", Usage: "only report these class names"},
		&cli.BoolFlag{Name: "headless", Usage: "write annotated frames to --output-dir instead of a window"},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "directory for annotated frames"},
		&cli.IntFlag{Name: "snapshot-every", Usage: "save one annotated frame out of N when headless"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	}
}

// flagContext returns the innermost context in which the flag was given.
func flagContext(c *cli.Context, name string) (*cli.Context, bool) {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx, true
		}
	}
	return nil, false
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if fc, ok := flagContext(c, "config"); ok {
		var err error
		if cfg, err = config.Load(fc.String("config")); err != nil {
			return cfg, err
		}
	}

	str := func(name string, dst *string) {
		if fc, ok := flagContext(c, name); ok {
			*dst = fc.String(name)
		}
	}
	threshold := func(name string, dst *float32) {
		if fc, ok := flagContext(c, name); ok {
			*dst = float32(fc.Float64(name))
		}
	}
	boolean := func(name string, dst *bool) {
		if fc, ok := flagContext(c, name); ok {
			*dst = fc.Bool(name)
		}
	}

	str("source", &cfg.Source)
	str("frames-dir", &cfg.FramesDir)
	str("model", &cfg.ModelPath)
	str("output-dir", &cfg.OutputDir)
	str("log-level", &cfg.LogLevel)
	threshold("confidence", &cfg.ConfidenceThreshold)
	threshold("iou", &cfg.IoUThreshold)
	boolean("class-aware", &cfg.ClassAware)
	boolean("headless", &cfg.Headless)

	if fc, ok := flagContext(c, "backend"); ok {
		cfg.Backend = detectors.Backend(fc.String("backend"))
	}
	if fc, ok := flagContext(c, "model-family"); ok {
		cfg.ModelFamily = models.ModelFamily(fc.String("model-family"))
	}
	if fc, ok := flagContext(c, "classes"); ok {
		cfg.Classes = fc.StringSlice("classes")
	}
	if fc, ok := flagContext(c, "snapshot-every"); ok {
		cfg.SnapshotEvery = fc.Int("snapshot-every")
	}

	return cfg, cfg.Validate()
}

func setup(c *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := logging.NewLogger(cfg.LogLevel, cfg.Development)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func newDetector(cfg config.Config, logger *zap.Logger) (closingDetector, error) {
	dc, err := cfg.Detector()
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case detectors.BackendOpenCV:
		return detectors.NewDNNDetector(dc, logger)
	default:
		return detectors.NewORTDetector(dc, logger)
	}
}

func newSource(cfg config.Config, logger *zap.Logger) (pipeline.Source, error) {
	if cfg.FramesDir != "" {
		return video.NewDirectory(cfg.FramesDir, logger)
	}
	return video.OpenCapture(cfg.Source, logger)
}

func newDisplay(cfg config.Config, logger *zap.Logger) (pipeline.Display, error) {
	if cfg.Headless {
		return video.NewSnapshots(cfg.OutputDir, cfg.SnapshotEvery, cfg.Style, logger)
	}
	return video.NewWindow(cfg.WindowTitle, cfg.Style), nil
}

func pipelineConfig(cfg config.Config) (pipeline.Config, error) {
	filter, err := cfg.Filter()
	if err != nil {
		return pipeline.Config{}, err
	}
	names, err := cfg.Names()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		FrameSize: cfg.FrameSize(),
		Filter:    filter,
		NMS:       cfg.NMS(),
		Names:     names,
	}, nil
}

func runCommand(c *cli.Context) (err error) {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pc, err := pipelineConfig(cfg)
	if err != nil {
		return err
	}

	detector, err := newDetector(cfg, logger.Named("detector"))
	if err != nil {
		logger.Error("cannot load detector", zap.Error(err))
		return err
	}
	defer func() { err = multierr.Append(err, detector.Close()) }()

	source, err := newSource(cfg, logger.Named("video"))
	if err != nil {
		logger.Error("cannot open video source", zap.Error(err))
		return err
	}

	display, err := newDisplay(cfg, logger.Named("video"))
	if err != nil {
		_ = source.Close()
		return err
	}

	prof := profiler.New(profiler.Options{ReportInterval: cfg.ProfileInterval}, logger.Named("profiler"))
	loop, err := pipeline.New(pc, source, detector, display, logger.Named("pipeline"), prof)
	if err != nil {
		return multierr.Combine(err, source.Close(), display.Close())
	}
	return loop.Run(c.Context)
}

func imageCommand(c *cli.Context) (err error) {
	path := c.Args().First()
	if path == "" {
		return errors.New("image path is required")
	}
	if err := validateImagePath(path); err != nil {
		return err
	}

	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pc, err := pipelineConfig(cfg)
	if err != nil {
		return err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return errors.Errorf("cannot read image %s", path)
	}
	defer img.Close()

	detector, err := newDetector(cfg, logger.Named("detector"))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, detector.Close()) }()

	instructions, stats, err := pipeline.Process(c.Context, detector, img, pc, nil)
	if err != nil {
		return err
	}

	frame, err := img.ToImage()
	if err != nil {
		return errors.Wrap(err, "convert image")
	}
	canvas, err := overlay.NewCanvas(cfg.Style)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", cfg.OutputDir)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(cfg.OutputDir, "processed_"+base+".png")
	if err := canvas.SavePNG(out, frame, instructions); err != nil {
		return err
	}

	logger.Info("image processed",
		zap.String("input", path),
		zap.String("output", out),
		zap.Int("width", img.Cols()),
		zap.Int("height", img.Rows()),
		zap.Int("raw", stats.Raw),
		zap.Int("kept", stats.Kept),
	)
	for _, ins := range instructions {
		logger.Info("object", zap.String("label", ins.Label), zap.Stringer("box", ins.Region.Rectangle()))
	}
	return nil
}

// validateImagePath checks that the file exists and has a supported extension.
func validateImagePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "file not found: %s", path)
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedImageExtensions {
		if ext == supported {
			return nil
		}
	}
	return errors.Errorf("unsupported file extension: %s. Supported extensions: %v", ext, supportedImageExtensions)
}

func classesCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	names, err := cfg.Names()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR")
	for _, class := range names.Classes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", class.Index, class.Name, overlay.ColorFor(class.Index).Hex())
	}
	return w.Flush()
}
