// Package pipeline - The frame loop: acquire, detect, filter, suppress, annotate, present.
package pipeline

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-detect/images"
	"github.com/nvr-ai/go-detect/models"
	"github.com/nvr-ai/go-detect/models/postprocess"
	"github.com/nvr-ai/go-detect/overlay"
	"github.com/nvr-ai/go-detect/profiler"
)

// DefaultFrameSize is the resolution frames are normalized to before detection.
var DefaultFrameSize = image.Pt(1020, 600)

// ErrAlreadyStopped is returned when a loop that has already run is started again.
var ErrAlreadyStopped = errors.New("pipeline already stopped")

// Source produces frames. Read returns an error once no more frames can be produced.
type Source interface {
	Read(ctx context.Context, dst *gocv.Mat) error
	Close() error
}

// Detector produces the raw detections of a frame, grouped by result object.
type Detector interface {
	Detect(ctx context.Context, frame gocv.Mat) ([]postprocess.Result, error)
}

// Display presents annotated frames and relays stop requests such as a quit key.
type Display interface {
	Present(frame *gocv.Mat, instructions []overlay.RenderInstruction) error
	StopRequested() bool
	Close() error
}

// State is the lifecycle state of a Loop.
type State int

const (
	// StateInitializing is the state of a loop that has not run yet.
	StateInitializing State = iota
	// StateRunning is the state of a loop processing frames.
	StateRunning
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds the per-frame processing parameters of the loop.
type Config struct {
	// FrameSize is the resolution frames are resized to before detection.
	FrameSize image.Point
	// Filter is the confidence gate applied to raw detections.
	Filter postprocess.FilterConfig
	// NMS configures non-maximum suppression, including its own confidence gate.
	NMS postprocess.NMSConfig
	// Names resolves class names for detections whose result carried no class table.
	Names models.ClassNamer
}

// DefaultConfig returns the default processing parameters.
func DefaultConfig() Config {
	return Config{
		FrameSize: DefaultFrameSize,
		Filter:    postprocess.DefaultFilterConfig(),
		NMS:       postprocess.DefaultNMSConfig(),
	}
}

// Loop drives frames from a Source through a Detector to a Display.
//
// A Loop runs once. It owns the source and the display and closes both when it stops,
// whatever the reason.
type Loop struct {
	cfg      Config
	source   Source
	detector Detector
	display  Display
	logger   *zap.Logger
	profiler *profiler.Profiler

	mu     sync.Mutex
	state  State
	frames int
	closed bool
}

// Stats summarizes the post-processing of one frame.
type Stats struct {
	Raw      int
	Admitted int
	Kept     int
}

// New creates a loop in StateInitializing.
//
// Arguments:
//   - cfg: Processing parameters; a zero FrameSize uses DefaultFrameSize.
//   - source: Frame source, owned by the loop.
//   - detector: Detector, not owned by the loop.
//   - display: Display, owned by the loop.
//   - logger: The logger; nil disables logging.
//   - prof: The profiler; nil disables profiling.
//
// Returns:
//   - *Loop: The loop.
//   - error: An error if a collaborator is missing.
func New(
	cfg Config,
	source Source,
	detector Detector,
	display Display,
	logger *zap.Logger,
	prof *profiler.Profiler,
) (*Loop, error) {
	if source == nil || detector == nil || display == nil {
		return nil, errors.New("pipeline needs a source, a detector and a display")
	}
	if cfg.FrameSize == (image.Point{}) {
		cfg.FrameSize = DefaultFrameSize
	}
	if cfg.FrameSize.X <= 0 || cfg.FrameSize.Y <= 0 {
		return nil, errors.Errorf("invalid frame size %v", cfg.FrameSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loop{
		cfg:      cfg,
		source:   source,
		detector: detector,
		display:  display,
		logger:   logger,
		profiler: prof,
		state:    StateInitializing,
	}, nil
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Frames returns the number of frames presented so far.
func (l *Loop) Frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Run processes frames until the source runs dry, ctx is done, or the display requests a
// stop. Stop conditions are polled once per iteration; an iteration in progress always
// completes.
//
// Running out of frames is the expected way for a stream to end: it is logged as a
// warning and Run returns nil. The source and the display are closed on every exit path.
//
// Arguments:
//   - ctx: Cancelling it stops the loop before the next frame.
//
// Returns:
//   - error: ErrAlreadyStopped if the loop has run before, a display error, or the
//     errors of closing the source and the display.
func (l *Loop) Run(ctx context.Context) (err error) {
	l.mu.Lock()
	if l.state != StateInitializing {
		l.mu.Unlock()
		return ErrAlreadyStopped
	}
	l.state = StateRunning
	l.mu.Unlock()

	l.logger.Info("pipeline running", zap.Stringer("frame_size", l.cfg.FrameSize))

	defer func() {
		err = multierr.Append(err, l.Close())
		if l.profiler != nil {
			l.profiler.Report()
		}
		l.logger.Info("pipeline stopped", zap.Int("frames", l.Frames()), zap.Error(err))
	}()

	// The iteration itself is never cancelled mid-way.
	iterCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			l.logger.Info("stop signal received")
			return nil
		}
		if l.display.StopRequested() {
			l.logger.Info("stop requested by display")
			return nil
		}

		if _, err := l.Step(iterCtx); err != nil {
			var acq *acquireError
			if errors.As(err, &acq) {
				l.logger.Warn("frame acquisition ended, stopping", zap.Error(acq.err))
				return nil
			}
			return err
		}

		if l.profiler != nil {
			l.profiler.MaybeReport(time.Now())
		}
	}
}

// acquireError marks a failure to read the next frame, which ends the stream.
type acquireError struct{ err error }

func (e *acquireError) Error() string { return "acquire frame: " + e.err.Error() }
func (e *acquireError) Unwrap() error { return e.err }

// Step processes exactly one frame: acquire, resize, detect, filter, suppress, annotate
// and present. The frame is allocated for the step and closed before it returns.
//
// A detector failure is logged and the frame is presented without boxes; it does not
// fail the step.
//
// Arguments:
//   - ctx: Passed to the source and the detector.
//
// Returns:
//   - Stats: Detection counts of the frame.
//   - error: The source error (wrapping e.g. video.ErrEndOfStream), a resize error, a
//     display error, or ErrAlreadyStopped once the loop is closed.
func (l *Loop) Step(ctx context.Context) (Stats, error) {
	if l.isClosed() {
		return Stats{}, ErrAlreadyStopped
	}

	frame := gocv.NewMat()
	defer frame.Close()

	done := l.startOperation("acquire")
	err := l.source.Read(ctx, &frame)
	done()
	if err != nil {
		return Stats{}, &acquireError{err: err}
	}

	if err := images.ResizeMat(frame, &frame, l.cfg.FrameSize); err != nil {
		return Stats{}, errors.Wrap(err, "normalize frame")
	}

	instructions, stats, err := Process(ctx, l.detector, frame, l.cfg, l.profiler)
	if err != nil {
		l.logger.Error("detection failed, presenting bare frame", zap.Int("frame", l.Frames()), zap.Error(err))
	}

	done = l.startOperation("render")
	err = l.display.Present(&frame, instructions)
	done()
	if err != nil {
		return stats, errors.Wrap(err, "present frame")
	}

	l.mu.Lock()
	l.frames++
	n := l.frames
	l.mu.Unlock()

	l.record(stats)
	l.logger.Debug("frame processed",
		zap.Int("frame", n),
		zap.Int("raw", stats.Raw),
		zap.Int("admitted", stats.Admitted),
		zap.Int("kept", stats.Kept),
	)
	return stats, nil
}

func (l *Loop) startOperation(name string) func() {
	return startOperation(l.profiler, name)
}

func startOperation(prof *profiler.Profiler, name string) func() {
	if prof == nil {
		return func() {}
	}
	return prof.StartOperation(name)
}

// Process runs the detector on a frame and turns its output into render instructions:
// flatten, confidence filter, non-maximum suppression, annotate.
//
// Arguments:
//   - ctx: Passed to the detector.
//   - detector: The detector.
//   - frame: The frame, in the coordinates the instructions are reported in.
//   - cfg: Processing parameters; FrameSize is not used.
//   - prof: Receives the "detect" and "postprocess" timings; may be nil.
//
// Returns:
//   - []overlay.RenderInstruction: The boxes to draw; empty, never nil.
//   - Stats: Detection counts of the frame.
//   - error: The detector error; instructions are then empty.
func Process(
	ctx context.Context,
	detector Detector,
	frame gocv.Mat,
	cfg Config,
	prof *profiler.Profiler,
) ([]overlay.RenderInstruction, Stats, error) {
	done := startOperation(prof, "detect")
	results, err := detector.Detect(ctx, frame)
	done()
	if err != nil {
		return []overlay.RenderInstruction{}, Stats{}, err
	}

	done = startOperation(prof, "postprocess")
	defer done()

	raw := postprocess.Flatten(results)
	detections := postprocess.Filter(raw, cfg.Filter)
	keep := postprocess.Suppress(detections, cfg.NMS)
	instructions := overlay.Annotate(detections, keep, cfg.Names)

	return instructions, Stats{Raw: len(raw), Admitted: len(detections), Kept: len(keep)}, nil
}

func (l *Loop) record(s Stats) {
	if l.profiler == nil {
		return
	}
	l.profiler.CountFrame()
	l.profiler.RecordMetric("raw_detections", float64(s.Raw))
	l.profiler.RecordMetric("admitted_detections", float64(s.Admitted))
	l.profiler.RecordMetric("kept_detections", float64(s.Kept))
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close moves the loop to StateStopped and releases the source and the display. Only the
// first call does anything.
func (l *Loop) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.state = StateStopped
	l.mu.Unlock()

	return multierr.Combine(
		errors.Wrap(l.source.Close(), "close source"),
		errors.Wrap(l.display.Close(), "close display"),
	)
}
