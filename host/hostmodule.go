package host

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/runjs/runjs/runtime"
	"github.com/runjs/runjs/wire"
)

const (
	// ModuleName is the import module of the host functions.
	ModuleName = "runjs"

	httpSend   = "http_send"
	httpResult = "http_result"
	logMessage = "log_message"
)

var errNoCapability = errors.New("outbound HTTP is not available")

// Caller performs outbound HTTP calls for the guest. *bridge.Bridge is
// the production implementation.
type Caller interface {
	Call(ctx context.Context, req wire.Request) (wire.Response, error)
}

// stackKey is the key used to store the stack in the context
type stackKey struct{}

// Stack holds the data being passed between the host and the guest during
// one instantiation.
type Stack struct {
	Caller Caller
	Logger *zap.Logger

	// Calls counts http_send invocations.
	Calls int

	// pending is the encoded result of the last http_send, held until the
	// guest reads it with http_result.
	pending []byte
}

// WithStack returns a context that host functions called under it will
// use.
func WithStack(ctx context.Context, stack *Stack) context.Context {
	return context.WithValue(ctx, stackKey{}, stack)
}

var emptyStack = &Stack{}

// stackFromContext retrieves the Stack from the context. Calls made
// without one see no capabilities.
func stackFromContext(ctx context.Context) *Stack {
	if s, ok := ctx.Value(stackKey{}).(*Stack); ok && s != nil {
		return s
	}
	return emptyStack
}

// NewHostModule returns the host functions a guest may import.
func NewHostModule() *runtime.HostModule {
	i32 := runtime.ValueTypeI32
	return runtime.NewHostModule(ModuleName).
		AddFunction(httpSend, []runtime.ValueType{i32, i32}, []runtime.ValueType{i32}, httpSendFn).
		AddFunction(httpResult, []runtime.ValueType{i32, i32}, []runtime.ValueType{i32}, httpResultFn).
		AddFunction(logMessage, []runtime.ValueType{i32, i32}, nil, logMessageFn)
}

// httpSendFn decodes the request at (ptr, size), performs it and keeps the
// encoded result for http_result. It returns the result length.
func httpSendFn(ctx context.Context, mem runtime.Memory, stack []uint64) {
	buf := uint32(stack[0])
	size := uint32(stack[1])

	s := stackFromContext(ctx)
	raw := mustRead(mem, buf, size, "request")

	var res wire.Result
	if resp, err := call(ctx, s, raw); err != nil {
		res.Error = toWireError(err)
	} else {
		res.Response = &resp
	}

	encoded, err := wire.MarshalResult(res)
	if err != nil {
		panic(err) // Bug: in marshaller
	}
	if s != emptyStack {
		s.Calls++
		s.pending = encoded
	}
	stack[0] = uint64(len(encoded))
}

func call(ctx context.Context, s *Stack, raw []byte) (wire.Response, error) {
	req, err := wire.UnmarshalRequest(raw)
	if err != nil {
		return wire.Response{}, err
	}
	if s.Caller == nil {
		return wire.Response{}, wire.NetworkFailure(errNoCapability)
	}
	return s.Caller.Call(ctx, req)
}

// httpResultFn copies the pending result into (ptr, limit). The result is
// released once it has been copied.
func httpResultFn(ctx context.Context, mem runtime.Memory, stack []uint64) {
	buf := uint32(stack[0])
	bufLimit := uint32(stack[1])

	s := stackFromContext(ctx)
	n, written := writeBytesIfUnderLimit(mem, s.pending, buf, bufLimit)
	if written && s != emptyStack {
		s.pending = nil
	}
	stack[0] = uint64(n)
}

func toWireError(err error) *wire.Error {
	var we *wire.Error
	if errors.As(err, &we) {
		return we
	}
	return wire.NetworkFailure(err)
}
