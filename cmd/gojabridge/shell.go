package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	gojabridge "github.com/joeycumines/goja-bridge"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// quitRequest is the interrupt reason used by quit().
type quitRequest struct {
	code int
}

// shell evaluates input against one context, printing results to out.
type shell struct {
	ctx    *gojabridge.Context
	logger *logiface.Logger[logiface.Event]
	out    io.Writer
	line   int
	quit   *quitRequest
}

func newShell(cfg Config, out, logs io.Writer) (*shell, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(logs)),
		stumpy.L.WithLevel(level),
	).Logger()

	registry := require.NewRegistry(require.WithGlobalFolders(cfg.ModulePaths...))
	registry.RegisterNativeModule(console.ModuleName, console.Require)

	ctx, err := gojabridge.New(
		gojabridge.WithLogger(logger),
		gojabridge.WithStrict(cfg.Strict),
		gojabridge.WithRequireRegistry(registry),
	)
	if err != nil {
		return nil, err
	}
	registry.RegisterNativeModule("bridge", ctx.ModuleLoader())
	console.Enable(ctx.Runtime())

	s := &shell{ctx: ctx, logger: logger, out: out, line: 1}
	if err := s.defineGlobals(); err != nil {
		_ = ctx.Close()
		return nil, err
	}
	return s, nil
}

func (s *shell) defineGlobals() error {
	global := s.ctx.Global()
	if _, err := s.ctx.DefineFunction(global, "print", 0, func(call *gojabridge.CallContext) error {
		parts := make([]string, 0, call.Args.Len())
		for _, v := range call.Args.All() {
			str, err := v.ToString()
			if err != nil {
				return err
			}
			parts = append(parts, str)
		}
		_, err := fmt.Fprintln(s.out, strings.Join(parts, " "))
		return err
	}); err != nil {
		return err
	}
	if _, err := s.ctx.DefineFunction(global, "gc", 0, func(call *gojabridge.CallContext) error {
		call.Context.GC()
		return nil
	}); err != nil {
		return err
	}
	_, err := s.ctx.DefineFunction(global, "quit", 1, func(call *gojabridge.CallContext) error {
		q := &quitRequest{}
		if arg := call.Arg(0); !arg.IsUndefined() {
			code, err := arg.ToInt32()
			if err != nil {
				return err
			}
			q.code = int(code)
		}
		s.quit = q
		call.Context.Interrupt(q)
		return nil
	})
	return err
}

// Done reports whether quit() was called, and the exit code it requested.
func (s *shell) Done() (int, bool) {
	if s.quit == nil {
		return 0, false
	}
	return s.quit.code, true
}

// Close releases the context.
func (s *shell) Close() error { return s.ctx.Close() }

// RunFile executes a script file.
func (s *shell) RunFile(name string) error {
	_, err := s.ctx.Execute(name, gojabridge.Object{})
	return s.filter(err)
}

// Eval evaluates source, labelled file, without printing the result.
func (s *shell) Eval(source, file string) (gojabridge.Value, error) {
	v, err := s.ctx.Evaluate(source, file, 1)
	return v, s.filter(err)
}

// Execute runs one complete REPL entry and prints its result, or the error.
func (s *shell) Execute(input string) {
	if strings.TrimSpace(input) == "" {
		return
	}
	line := s.line
	s.line += strings.Count(input, "\n") + 1
	v, err := s.ctx.Evaluate(input, "<stdin>", line)
	if err = s.filter(err); err != nil {
		s.logger.Debug().Err(err).Log("evaluation failed")
		_, _ = fmt.Fprintln(s.out, describeError(err))
		return
	}
	if s.quit != nil || v.IsUndefined() {
		return
	}
	_, _ = fmt.Fprintln(s.out, v.String())
}

// filter drops the abort raised by quit().
func (s *shell) filter(err error) error {
	var abort *gojabridge.AbortError
	if errors.As(err, &abort) {
		if _, ok := abort.Reason.(*quitRequest); ok {
			return nil
		}
	}
	return err
}

// Complete reports whether input can be run, or needs more lines.
func (s *shell) Complete(input string) bool {
	return s.ctx.IsCompilable(input)
}

// Globals returns the names of the enumerable global properties, and the
// shell builtins, sorted.
func (s *shell) Globals() []string {
	names := []string{"console", "gc", "print", "quit", "require"}
	for k := range s.ctx.Global().Properties() {
		if name, err := k.AsString(); err == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func describeError(err error) string {
	var (
		script  *gojabridge.ScriptError
		compile *gojabridge.CompileError
	)
	switch {
	case errors.As(err, &script):
		if s, e := script.Exception.ToString(); e == nil {
			return "Uncaught " + s
		}
	case errors.As(err, &compile):
		return "SyntaxError: " + compile.Err.Error()
	}
	return err.Error()
}
