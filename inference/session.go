// Package inference - ONNX Runtime sessions and input tensor preparation.
package inference

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

// SessionConfig describes a single-input, single-output ONNX Runtime session.
type SessionConfig struct {
	// ModelPath is the path to the .onnx file.
	ModelPath string
	// SharedLibraryPath is the onnxruntime shared library; empty uses DefaultSharedLibPath.
	SharedLibraryPath string
	// InputName and OutputName are the graph tensor names.
	InputName  string
	OutputName string
	// InputShape and OutputShape are the fixed tensor shapes.
	InputShape  []int64
	OutputShape []int64
	// IntraOpThreads parallelizes execution within graph nodes; 0 lets onnxruntime decide.
	IntraOpThreads int
	// InterOpThreads parallelizes execution across graph nodes; 0 lets onnxruntime decide.
	InterOpThreads int
}

// Session represents a model session from the onnxruntime.
type Session struct {
	session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

var (
	envMu   sync.Mutex
	envRefs int
	// envOwned is set when this package initialized the environment and must destroy it.
	envOwned bool

	ortIsInitialized      = ort.IsInitialized
	ortInitializeEnv      = initializeEnvironment
	ortDestroyEnvironment = ort.DestroyEnvironment
)

func initializeEnvironment(libPath string) error {
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
	}
	ort.SetSharedLibraryPath(libPath)
	return errors.Wrap(ort.InitializeEnvironment(), "initialize onnxruntime environment")
}

// acquireEnvironment initializes the process-wide onnxruntime environment on first use.
// An environment initialized elsewhere in the process is used but never destroyed here.
func acquireEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		envOwned = false
		if !ortIsInitialized() {
			if err := ortInitializeEnv(libPath); err != nil {
				return err
			}
			envOwned = true
		}
	}
	envRefs++
	return nil
}

// releaseEnvironment destroys the environment when its last session is closed.
func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs > 0 || !envOwned {
		return nil
	}
	envOwned = false
	return errors.Wrap(ortDestroyEnvironment(), "destroy onnxruntime environment")
}

// NewSession creates a CPU session with pre-allocated input and output tensors.
//
// Arguments:
//   - cfg: The session configuration.
//
// Returns:
//   - *Session: The session, ready to Run once Input is filled.
//   - error: An error if the library, model or tensors cannot be set up.
func NewSession(cfg SessionConfig) (*Session, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Wrapf(err, "model file not found: %s", cfg.ModelPath)
	}

	libPath := cfg.SharedLibraryPath
	if libPath == "" {
		var err error
		if libPath, err = DefaultSharedLibPath(); err != nil {
			return nil, err
		}
	}
	if err := acquireEnvironment(libPath); err != nil {
		return nil, err
	}

	s, err := newSession(cfg)
	if err != nil {
		_ = releaseEnvironment()
		return nil, err
	}
	return s, nil
}

func newSession(cfg SessionConfig) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.OutputShape...))
	if err != nil {
		_ = input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()

	if err := configureOptions(options, cfg); err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		return nil, errors.Wrap(err, "create onnxruntime session")
	}

	return &Session{session: session, Input: input, Output: output}, nil
}

func configureOptions(options *ort.SessionOptions, cfg SessionConfig) error {
	if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
		return errors.Wrap(err, "set intra-op threads")
	}
	if err := options.SetInterOpNumThreads(cfg.InterOpThreads); err != nil {
		return errors.Wrap(err, "set inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	return nil
}

// Run executes the model on the current contents of Input, filling Output.
func (s *Session) Run() error {
	if s.session == nil {
		return errors.New("session is closed")
	}
	return errors.Wrap(s.session.Run(), "run onnxruntime session")
}

// Close releases the tensors and the session, and the shared environment with the last
// session. It is safe to call more than once.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}

	err := multierr.Combine(
		s.session.Destroy(),
		s.Input.Destroy(),
		s.Output.Destroy(),
	)
	s.session, s.Input, s.Output = nil, nil, nil

	err = multierr.Append(err, releaseEnvironment())
	return errors.Wrap(err, "close session")
}
