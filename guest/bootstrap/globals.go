package bootstrap

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/runjs/runjs/guest/marshal"
	"github.com/runjs/runjs/wire"
)

// HTTPGlobal is the global name of the outbound HTTP function. Existing
// scripts call it by this name.
const HTTPGlobal = "reqwest_get"

// variadic marks a builtin that accepts any number of arguments.
const variadic = -1

type builtin struct {
	arity int
	call  func(e *env, args []goja.Value) goja.Value
}

// builtins is keyed by dotted global path.
var builtins = map[string]builtin{
	"console.log": {arity: variadic, call: (*env).consoleLog},
	HTTPGlobal:    {arity: 1, call: (*env).httpSend},
}

// env is the host state the builtins close over.
type env struct {
	vm       *goja.Runtime
	opts     Options
	newError goja.Constructor
}

func install(vm *goja.Runtime, opts Options) error {
	ctor, ok := goja.AssertConstructor(vm.Get("Error"))
	if !ok {
		return errors.New("bootstrap: Error is not a constructor")
	}
	e := &env{vm: vm, opts: opts, newError: ctor}

	// Sorted so the engine heap is laid out the same way on every build.
	paths := make([]string, 0, len(builtins))
	for path := range builtins {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		b := builtins[path]
		fn := func(call goja.FunctionCall) goja.Value {
			if b.arity != variadic && len(call.Arguments) != b.arity {
				e.throw(wire.Arity(b.arity, len(call.Arguments)))
			}
			return b.call(e, call.Arguments)
		}
		if err := define(vm, path, fn); err != nil {
			return fmt.Errorf("bootstrap: install %s: %w", path, err)
		}
	}
	return nil
}

// define sets fn at a dotted path below the global object, creating
// intermediate objects as needed.
func define(vm *goja.Runtime, path string, fn func(goja.FunctionCall) goja.Value) error {
	parts := strings.Split(path, ".")
	parent := vm.GlobalObject()
	for _, name := range parts[:len(parts)-1] {
		next, ok := parent.Get(name).(*goja.Object)
		if !ok {
			next = vm.NewObject()
			if err := parent.Set(name, next); err != nil {
				return err
			}
		}
		parent = next
	}
	return parent.Set(parts[len(parts)-1], fn)
}

func (e *env) consoleLog(args []goja.Value) goja.Value {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		var s string
		if ex := e.vm.Try(func() { s = arg.String() }); ex != nil {
			panic(e.vm.NewTypeError("console.log: argument %d cannot be converted to a string: %s", i, ex.Value()))
		}
		sb.WriteString(s)
	}
	sb.WriteByte('\n')

	// One Write per call so a line is never split across fd_write calls.
	if _, err := e.opts.Stdout.Write([]byte(sb.String())); err != nil {
		panic(e.vm.NewGoError(fmt.Errorf("console.log: %w", err)))
	}
	return goja.Undefined()
}

func (e *env) httpSend(args []goja.Value) goja.Value {
	req, err := marshal.DecodeRequest(e.vm, args[0])
	if err != nil {
		e.throw(err)
	}

	if e.opts.Sender == nil {
		e.throw(wire.NetworkFailure(errors.New("no outbound transport configured")))
	}

	e.opts.Logger.Debug("outbound call",
		zap.String("method", req.Method),
		zap.String("uri", req.URI),
	)
	resp, err := e.opts.Sender.Send(req)
	if err != nil {
		e.throw(err)
	}
	return marshal.EncodeResponse(e.vm, resp)
}

// throw raises err as a JavaScript Error whose name is the error kind and
// whose message starts with it. It does not return.
func (e *env) throw(err error) {
	name, message := "Error", err.Error()
	var we *wire.Error
	if errors.As(err, &we) {
		name = string(we.Kind)
		message = name + ": " + we.Message
	}

	obj, cerr := e.newError(nil, e.vm.ToValue(message))
	if cerr != nil {
		panic(e.vm.NewGoError(err))
	}
	_ = obj.Set("name", name)
	if we != nil {
		_ = obj.Set("kind", string(we.Kind))
		if we.Field != "" {
			_ = obj.Set("field", we.Field)
		}
	}
	panic(obj)
}
