package gojabridge

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/joeycumines/logiface"
)

// Context binds a [goja.Runtime] to the bridge: it owns the root registry,
// the native object bindings, and the named prototype and constructor
// registries.
//
// A Context, like the runtime it wraps, is not safe for concurrent use. All
// methods must be called from the goroutine driving the runtime, except
// [Context.Interrupt].
type Context struct {
	runtime *goja.Runtime
	logger  *logiface.Logger[logiface.Event]

	roots  *RootRegistry
	scopes []*Scope

	// scopeChain is the head of the scope chain while EvaluateInScope runs
	scopeChain []Object

	prototypes   map[string]*Root
	constructors map[string]*Root

	natives   map[weak.Pointer[goja.Object]]*binding
	finalized finalizeQueue

	sourceLoader require.SourceLoader
	parentKey    *goja.Symbol
	intrinsics   intrinsics

	strict           bool
	implicitCoercion bool
	closed           bool
}

// intrinsics are builtins the bridge calls through goja's Callable
// interface, which reports exceptions as errors.
type intrinsics struct {
	String                         goja.Callable
	Number                         goja.Callable
	Object                         goja.Callable
	ReflectGet                     goja.Callable
	ReflectHas                     goja.Callable
	ReflectSet                     goja.Callable
	ReflectGetPrototypeOf          goja.Callable
	HasOwnProperty                 goja.Callable
	ObjectKeys                     goja.Callable
	ObjectGetOwnPropertyNames      goja.Callable
	ObjectGetOwnPropertyDescriptor goja.Callable
	ObjectDefineProperty           goja.Callable
	ObjectSeal                     goja.Callable
	ArrayIsArray                   goja.Callable
}

// New creates a [Context] over a new [goja.Runtime].
func New(opts ...Option) (*Context, error) {
	return Wrap(goja.New(), opts...)
}

// Wrap creates a [Context] over an existing runtime. A runtime may be wrapped
// more than once, each Context keeping its own roots and native bindings.
//
// Wrap panics if runtime is nil, as this is a programming error. It returns
// an error if option validation fails.
func Wrap(rt *goja.Runtime, opts ...Option) (*Context, error) {
	if rt == nil {
		panic("gojabridge: runtime must not be nil")
	}

	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("gojabridge: %w", err)
	}

	c := &Context{
		runtime:          rt,
		logger:           cfg.logger,
		prototypes:       make(map[string]*Root),
		constructors:     make(map[string]*Root),
		natives:          make(map[weak.Pointer[goja.Object]]*binding),
		sourceLoader:     cfg.sourceLoader,
		parentKey:        goja.NewSymbol("gojabridge.parent"),
		strict:           cfg.strict,
		implicitCoercion: cfg.implicitCoercion,
	}
	c.roots = newRootRegistry(c)
	if c.sourceLoader == nil {
		c.sourceLoader = require.DefaultSourceLoader
	}
	if cfg.fieldNameMapper != nil {
		rt.SetFieldNameMapper(cfg.fieldNameMapper)
	}
	if cfg.registry != nil {
		cfg.registry.Enable(rt)
	}
	if err := c.loadIntrinsics(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) loadIntrinsics() error {
	global := c.runtime.GlobalObject()
	var failed []string
	lookup := func(path ...string) goja.Callable {
		var v goja.Value = global
		for _, name := range path {
			obj, ok := v.(*goja.Object)
			if !ok {
				v = nil
				break
			}
			v = obj.Get(name)
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			failed = append(failed, fmt.Sprint(path))
		}
		return fn
	}
	c.intrinsics = intrinsics{
		String:                         lookup("String"),
		Number:                         lookup("Number"),
		Object:                         lookup("Object"),
		ReflectGet:                     lookup("Reflect", "get"),
		ReflectHas:                     lookup("Reflect", "has"),
		ReflectSet:                     lookup("Reflect", "set"),
		ReflectGetPrototypeOf:          lookup("Reflect", "getPrototypeOf"),
		HasOwnProperty:                 lookup("Object", "prototype", "hasOwnProperty"),
		ObjectKeys:                     lookup("Object", "keys"),
		ObjectGetOwnPropertyNames:      lookup("Object", "getOwnPropertyNames"),
		ObjectGetOwnPropertyDescriptor: lookup("Object", "getOwnPropertyDescriptor"),
		ObjectDefineProperty:           lookup("Object", "defineProperty"),
		ObjectSeal:                     lookup("Object", "seal"),
		ArrayIsArray:                   lookup("Array", "isArray"),
	}
	if len(failed) != 0 {
		return fmt.Errorf("gojabridge: runtime is missing builtins %v", failed)
	}
	return nil
}

// Runtime returns the wrapped runtime.
func (c *Context) Runtime() *goja.Runtime { return c.runtime }

// Roots returns the context's root registry.
func (c *Context) Roots() *RootRegistry { return c.roots }

// Global returns the global object.
func (c *Context) Global() Object {
	return Object{ctx: c, obj: c.runtime.GlobalObject()}
}

// ScopeChain returns the object at the head of the current scope chain:
// the scope passed to the innermost running [Context.EvaluateInScope], or
// the global object.
func (c *Context) ScopeChain() Object {
	if n := len(c.scopeChain); n != 0 {
		return c.scopeChain[n-1]
	}
	return c.Global()
}

// Strict reports whether evaluation compiles code in strict mode.
func (c *Context) Strict() bool { return c.strict }

// SetStrict sets strict mode for later evaluations, returning the previous
// setting.
func (c *Context) SetStrict(strict bool) bool {
	old := c.strict
	c.strict = strict
	return old
}

// Interrupt requests that running script stop. The running (or next)
// evaluation fails with an [*AbortError] carrying reason. It is safe to call
// from any goroutine.
func (c *Context) Interrupt(reason any) {
	c.runtime.Interrupt(reason)
}

// ToValue converts a Go value, see [goja.Runtime.ToValue]. [Value] and
// [Object] are passed through.
func (c *Context) ToValue(x any) Value {
	switch x := x.(type) {
	case Value:
		return x
	case Object:
		return FromObject(x)
	case *Value:
		return x.Owned()
	}
	return c.wrap(c.runtime.ToValue(x))
}

// ToObject converts v to an object, boxing primitives. Undefined and null
// fail with a [*ConversionError].
func (c *Context) ToObject(v Value) (Object, error) {
	s := v.storage()
	switch k := s.kind(); k {
	case KindObject:
		return Object{ctx: c, obj: s.v.(*goja.Object)}, nil
	case KindUndefined, KindNull:
		return Object{}, &ConversionError{From: k, To: "object"}
	}
	r, err := c.intrinsics.Object(goja.Undefined(), s.v)
	if err != nil {
		return Object{}, &ConversionError{From: s.kind(), To: "object", Cause: c.engineError("to_object", err)}
	}
	return c.objectOf(r), nil
}

// NewObject creates a plain object.
func (c *Context) NewObject() Object {
	return Object{ctx: c, obj: c.runtime.NewObject()}
}

// AddPrototype registers proto under name. The registered object is
// pinned until it is replaced or the context is closed.
func (c *Context) AddPrototype(name string, proto Object) {
	c.register(c.prototypes, name, proto)
}

// Prototype returns the prototype registered under name, or a null handle.
func (c *Context) Prototype(name string) Object {
	if g, ok := c.prototypes[name]; ok {
		return g.Object()
	}
	return Object{}
}

// AddConstructor registers ctor under name, like [Context.AddPrototype].
func (c *Context) AddConstructor(name string, ctor Object) {
	c.register(c.constructors, name, ctor)
}

// Constructor returns the constructor registered under name, or a null
// handle.
func (c *Context) Constructor(name string) Object {
	if g, ok := c.constructors[name]; ok {
		return g.Object()
	}
	return Object{}
}

func (c *Context) register(m map[string]*Root, name string, o Object) {
	if old, ok := m[name]; ok {
		old.Release()
	}
	m[name] = c.roots.RootObject(o)
}

// VisitRoots reports the root set: every slot pinned in the root registry,
// followed by every value traced by a bound native object. Iteration stops
// when fn returns false.
func (c *Context) VisitRoots(fn func(Value) bool) {
	stop := false
	c.roots.Visit(func(v Value) bool {
		stop = !fn(v)
		return !stop
	})
	if stop {
		return
	}
	for _, v := range c.traceNatives() {
		if !fn(v) {
			return
		}
	}
}

// GC runs a collection cycle, then finalizes native objects whose engine
// objects were collected. Finalization depends on the Go collector, so an
// unreachable object may take more than one cycle to be finalized.
func (c *Context) GC() {
	if c.closed {
		return
	}
	traced := c.traceNatives()
	runtime.GC()
	runtime.KeepAlive(traced)
	runtime.Gosched()
	n := c.drainFinalized()
	c.logger.Debug().
		Int("roots", c.roots.Len()).
		Int("natives", len(c.natives)).
		Int("finalized", n).
		Log("gojabridge: gc")
}

// Close releases every root, finalizes every native object that is still
// bound, and marks the context closed. Handle operations fail with
// [ErrClosed] afterwards. Close is idempotent.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	for len(c.scopes) != 0 {
		c.scopes[0].Close()
	}
	c.drainFinalized()
	var errs []error
	for key, b := range c.natives {
		delete(c.natives, key)
		if err := b.finalize(); err != nil {
			errs = append(errs, err)
		}
	}
	c.roots.releaseAll()
	clear(c.prototypes)
	clear(c.constructors)
	c.closed = true
	c.logger.Debug().Log("gojabridge: context closed")
	return errors.Join(errs...)
}

// finalizeQueue receives bindings from collector cleanups, which run on
// their own goroutine. It is drained on the context goroutine.
type finalizeQueue struct {
	mu      sync.Mutex
	pending []*binding
}

func (q *finalizeQueue) push(b *binding) {
	q.mu.Lock()
	q.pending = append(q.pending, b)
	q.mu.Unlock()
}

func (q *finalizeQueue) take() []*binding {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.pending
	q.pending = nil
	return pending
}

func (c *Context) drainFinalized() int {
	var n int
	for _, b := range c.finalized.take() {
		delete(c.natives, b.key)
		if err := b.finalize(); err != nil {
			c.logger.Err().Err(err).Log("gojabridge: native finalize failed")
			continue
		}
		n++
	}
	return n
}
