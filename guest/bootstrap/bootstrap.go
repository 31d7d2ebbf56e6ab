// Package bootstrap prepares the JavaScript engine inside the guest module.
//
// Initialize runs once while the module is being snapshotted: it compiles
// the guest source and installs the native globals. Run executes the
// compiled program exactly once when the snapshotted module is started.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/runjs/runjs/wire"
)

// DefaultName is the diagnostic file name given to guest source.
const DefaultName = "function.js"

var (
	// ErrCompile is returned when the guest source is not a valid script.
	ErrCompile = errors.New("compile guest source")
	// ErrUncaught is returned when evaluation ends with an uncaught exception.
	ErrUncaught = errors.New("uncaught exception")
)

// Sender performs one outbound HTTP call on behalf of the guest.
type Sender interface {
	Send(req wire.Request) (wire.Response, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(req wire.Request) (wire.Response, error)

func (f SenderFunc) Send(req wire.Request) (wire.Response, error) { return f(req) }

type Options struct {
	// Name is used in stack traces and syntax errors. Defaults to DefaultName.
	Name string
	// Stdout receives console.log output.
	Stdout io.Writer
	// Sender backs the HTTP global. Calls fail with NetworkError when nil.
	Sender Sender
	Logger *zap.Logger
}

// State is an initialized engine together with its compiled program.
type State struct {
	mu       sync.Mutex
	vm       *goja.Runtime
	program  *goja.Program
	consumed bool
	logger   *zap.Logger
}

// Initialize reads all of src, compiles it as a classic script and returns
// an engine with the native globals installed. The program is not run.
func Initialize(src io.Reader, opts Options) (*State, error) {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	code, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read guest source: %w", err)
	}

	program, err := goja.Compile(opts.Name, string(code), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompile, err)
	}

	vm := goja.New()
	if err := install(vm, opts); err != nil {
		return nil, err
	}

	opts.Logger.Debug("guest initialized",
		zap.String("name", opts.Name),
		zap.Int("sourceBytes", len(code)),
	)
	return &State{vm: vm, program: program, logger: opts.Logger}, nil
}

// Run evaluates the compiled program. A State can be run once; running it
// again panics.
func Run(s *State) error {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		panic("bootstrap: state already consumed")
	}
	s.consumed = true
	vm, program := s.vm, s.program
	s.vm, s.program = nil, nil
	s.mu.Unlock()

	if _, err := vm.RunProgram(program); err != nil {
		var ex *goja.Exception
		if errors.As(err, &ex) {
			s.logger.Debug("guest threw", zap.String("exception", ex.Error()))
			return fmt.Errorf("%w: %s", ErrUncaught, ex.String())
		}
		return fmt.Errorf("%w: %w", ErrUncaught, err)
	}
	return nil
}
