package gojabridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

// Evaluate compiles and runs source in the global scope, returning the
// completion value. file and line (1-based) label the source in stack
// traces and errors. Compilation failures return a [*CompileError], thrown
// exceptions a [*ScriptError], and interrupts an [*AbortError].
func (c *Context) Evaluate(source, file string, line int) (Value, error) {
	return c.evaluate("evaluate", source, file, line, Object{})
}

// EvaluateInScope is [Context.Evaluate] with scope at the head of the scope
// chain: free identifiers resolve against scope's properties before the
// global object. Scoped evaluation always compiles in sloppy mode.
func (c *Context) EvaluateInScope(source, file string, line int, scope Object) (Value, error) {
	return c.evaluate("evaluate", source, file, line, scope)
}

// Execute reads filename through the context's source loader (see
// [WithSourceLoader]) and evaluates it in scope, a null scope meaning the
// global scope. A leading "#!" line is ignored.
func (c *Context) Execute(filename string, scope Object) (Value, error) {
	if c.closed {
		return Value{}, fmt.Errorf("gojabridge: execute: %w", ErrClosed)
	}
	data, err := c.sourceLoader(filename)
	if err != nil {
		return Value{}, fmt.Errorf("gojabridge: execute %s: %w", filename, err)
	}
	source := string(data)
	if strings.HasPrefix(source, "#!") {
		if i := strings.IndexByte(source, '\n'); i >= 0 {
			source = source[i:]
		} else {
			source = ""
		}
	}
	return c.evaluate("execute", source, filename, 1, scope)
}

func (c *Context) evaluate(op, source, file string, line int, scope Object) (Value, error) {
	if c.closed {
		return Value{}, fmt.Errorf("gojabridge: %s: %w", op, ErrClosed)
	}
	c.drainFinalized()

	if line < 1 {
		line = 1
	}
	var b strings.Builder
	b.WriteString(strings.Repeat("\n", line-1))

	global := c.runtime.GlobalObject()
	scoped := scope.obj != nil && scope.obj != global
	strict := c.strict
	var binding string
	if scoped {
		strict = false
		binding = fmt.Sprintf("__gojabridge_scope%d", len(c.scopeChain))
		b.WriteString("with (")
		b.WriteString(binding)
		b.WriteString(") {")
	}
	b.WriteString(source)
	if scoped {
		b.WriteString("\n}")
	}

	prg, err := goja.Compile(file, b.String(), strict)
	if err != nil {
		return Value{}, &CompileError{File: file, Err: err}
	}

	if scoped {
		if err := global.DefineDataProperty(binding, scope.obj, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
			return Value{}, c.engineError(op, err)
		}
		c.scopeChain = append(c.scopeChain, scope)
		defer func() {
			c.scopeChain = c.scopeChain[:len(c.scopeChain)-1]
			_ = global.Delete(binding)
		}()
	}

	v, err := c.runtime.RunProgram(prg)
	if err != nil {
		return Value{}, c.engineError(op, err)
	}
	return c.wrap(v), nil
}

// IsCompilable reports whether source is a complete compilation unit. It is
// false only when the source ends prematurely, e.g. an unclosed block;
// sources with other syntax errors are complete (and fail to compile).
func IsCompilable(source string) bool {
	_, err := parser.ParseFile(nil, "", source, 0)
	if err == nil {
		return true
	}
	// goja's parser reports running out of tokens as err_UnexpectedEndOfInput
	var list parser.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			if e.Message == unexpectedEndOfInput {
				return false
			}
		}
		return true
	}
	return !strings.Contains(err.Error(), unexpectedEndOfInput)
}

const unexpectedEndOfInput = "Unexpected end of input"

// IsCompilable is the package function [IsCompilable].
func (c *Context) IsCompilable(source string) bool { return IsCompilable(source) }
