package gojabridge

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"weak"

	"github.com/dop251/goja"
)

// PropertyMode identifies the property operation intercepted by
// [NativeObject.PropertyOp].
type PropertyMode uint8

const (
	// PropertyAdd precedes PropertySet when the property does not exist yet.
	PropertyAdd PropertyMode = iota
	PropertyDelete
	PropertyGet
	PropertySet
)

func (m PropertyMode) String() string {
	switch m {
	case PropertyAdd:
		return "add"
	case PropertyDelete:
		return "delete"
	case PropertyGet:
		return "get"
	case PropertySet:
		return "set"
	default:
		return fmt.Sprintf("PropertyMode(%d)", uint8(m))
	}
}

// NativeObject is a Go value represented as an engine object, see
// [Context.NewNativeObject]. Implementations embed [NativeBase], which
// provides the default for every hook, and override what they need.
type NativeObject interface {
	// PropertyOp intercepts property access. data aliases the property
	// value: for get, the value about to be returned, for add and set,
	// the value about to be stored, for delete, the value being removed.
	// Writing data changes the result. A returned error is thrown as an
	// exception in script.
	PropertyOp(mode PropertyMode, key Value, data *Value) error

	// SelfCall implements calling the object as a function. It is only
	// used for objects created with [NativeCallable].
	SelfCall(call *CallContext) error

	// Trace must visit every engine value the instance retains, and no
	// other, so that they are reported in the root set.
	Trace(tracer *Tracer)

	// Finalize is called once, on the context goroutine, after the engine
	// object was collected (or the context closed).
	Finalize()

	nativeBase() *NativeBase
}

// NativeState is the binding state of a [NativeObject].
type NativeState uint32

const (
	NativeUnbound NativeState = iota
	NativeBound
	NativeFinalized
)

func (s NativeState) String() string {
	switch s {
	case NativeUnbound:
		return "unbound"
	case NativeBound:
		return "bound"
	case NativeFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("NativeState(%d)", uint32(s))
	}
}

// NativeBase is embedded by [NativeObject] implementations.
type NativeBase struct {
	state   atomic.Uint32
	binding *binding
}

func (n *NativeBase) nativeBase() *NativeBase { return n }

// PropertyOp passes property access through to the object.
func (n *NativeBase) PropertyOp(PropertyMode, Value, *Value) error { return nil }

// SelfCall fails with [ErrNotCallable].
func (n *NativeBase) SelfCall(*CallContext) error { return ErrNotCallable }

// Trace visits nothing.
func (n *NativeBase) Trace(*Tracer) {}

// Finalize does nothing.
func (n *NativeBase) Finalize() {}

// State returns the binding state.
func (n *NativeBase) State() NativeState { return NativeState(n.state.Load()) }

// Object returns the engine object the instance is bound to, or a null
// handle if it is unbound or the object was collected.
func (n *NativeBase) Object() Object {
	b := n.binding
	if b == nil {
		return Object{}
	}
	obj := b.key.Value()
	if obj == nil {
		return Object{}
	}
	return Object{ctx: b.ctx, obj: obj}
}

// Tracer collects the engine values reported by [NativeObject.Trace].
type Tracer struct {
	values []Value
}

// Visit reports a retained value. Non-object values are ignored.
func (t *Tracer) Visit(v Value) {
	if v.IsObject() {
		t.values = append(t.values, v.Owned())
	}
}

// VisitObject reports a retained object.
func (t *Tracer) VisitObject(o Object) {
	if !o.IsNull() {
		t.values = append(t.values, FromObject(o))
	}
}

// binding associates a native instance with its engine object. It refers
// to the object weakly: the collector cleanup registered on the object
// receives the binding, so the binding must not keep the object reachable.
type binding struct {
	ctx    *Context
	native NativeObject
	base   *NativeBase
	key    weak.Pointer[goja.Object]
}

type nativeOptions struct {
	proto    Object
	callable bool
}

// NativeOption configures [Context.NewNativeObject].
type NativeOption interface {
	applyNativeOption(*nativeOptions)
}

type nativeOptionFunc func(*nativeOptions)

func (f nativeOptionFunc) applyNativeOption(opts *nativeOptions) { f(opts) }

// NativeCallable makes the object callable, dispatching calls to
// [NativeObject.SelfCall].
func NativeCallable() NativeOption {
	return nativeOptionFunc(func(opts *nativeOptions) { opts.callable = true })
}

// NativePrototype sets the object's prototype.
func NativePrototype(proto Object) NativeOption {
	return nativeOptionFunc(func(opts *nativeOptions) { opts.proto = proto })
}

// NewNativeObject creates an engine object backed by inst, binding inst to
// it. An instance can be bound once: binding it again fails with
// [ErrAlreadyBound].
//
// The instance is finalized after the engine object becomes unreachable and
// is collected, see [Context.GC], or when the context is closed.
func (c *Context) NewNativeObject(inst NativeObject, opts ...NativeOption) (Object, error) {
	if c.closed {
		return Object{}, fmt.Errorf("gojabridge: new_native_object: %w", ErrClosed)
	}
	if inst == nil {
		return Object{}, fmt.Errorf("gojabridge: new_native_object: nil instance: %w", ErrMisuse)
	}
	var cfg nativeOptions
	for _, opt := range opts {
		if opt != nil {
			opt.applyNativeOption(&cfg)
		}
	}

	base := inst.nativeBase()
	if !base.state.CompareAndSwap(uint32(NativeUnbound), uint32(NativeBound)) {
		return Object{}, fmt.Errorf("gojabridge: new_native_object: %w", ErrAlreadyBound)
	}

	b := &binding{ctx: c, native: inst, base: base}

	var target *goja.Object
	if cfg.callable {
		target = c.runtime.ToValue(func(goja.FunctionCall) goja.Value { return goja.Undefined() }).(*goja.Object)
	} else {
		target = c.runtime.NewObject()
	}
	if !cfg.proto.IsNull() {
		if err := target.SetPrototype(cfg.proto.obj); err != nil {
			base.state.Store(uint32(NativeUnbound))
			return Object{}, c.engineError("new_native_object", err)
		}
	}

	traps := &goja.ProxyTrapConfig{
		Get:            b.get,
		Set:            b.set,
		DeleteProperty: b.deleteProperty,
	}
	if cfg.callable {
		traps.Apply = b.apply
	}
	obj := c.runtime.ToValue(c.runtime.NewProxy(target, traps)).(*goja.Object)

	b.key = weak.Make(obj)
	base.binding = b
	c.natives[b.key] = b
	runtime.AddCleanup(obj, func(b *binding) { b.ctx.finalized.push(b) }, b)

	return Object{ctx: c, obj: obj}, nil
}

// Native returns the instance bound to o.
func (c *Context) Native(o Object) (NativeObject, error) {
	if o.obj == nil {
		return nil, fmt.Errorf("gojabridge: native: %w", ErrNullTarget)
	}
	b, ok := c.natives[weak.Make(o.obj)]
	if !ok {
		return nil, fmt.Errorf("gojabridge: native: %w", ErrNotNative)
	}
	return b.native, nil
}

func (b *binding) get(target *goja.Object, property string, receiver goja.Value) goja.Value {
	c := b.ctx
	var data Value
	if b.isSelf(receiver) {
		data = c.wrap(target.Get(property))
	} else {
		// reached through the prototype chain, accessors see the inheritor as this
		r, err := c.intrinsics.ReflectGet(goja.Undefined(), target, c.runtime.ToValue(property), receiver)
		if err != nil {
			panic(c.throw(c.engineError("get_property", err)))
		}
		data = c.wrap(r)
	}
	if err := b.native.PropertyOp(PropertyGet, String(property), &data); err != nil {
		panic(c.throw(err))
	}
	return c.toGoja(data.storage())
}

func (b *binding) set(target *goja.Object, property string, value goja.Value, receiver goja.Value) bool {
	c := b.ctx
	key := String(property)
	data := c.wrap(value)
	self := b.isSelf(receiver)

	// an assignment to an inheritor always adds, from the native side
	exists := false
	if self {
		r, err := c.intrinsics.HasOwnProperty(target, c.runtime.ToValue(property))
		if err != nil {
			panic(c.throw(c.engineError("set_property", err)))
		}
		exists = r.ToBoolean()
	}
	if !exists {
		if err := b.native.PropertyOp(PropertyAdd, key, &data); err != nil {
			panic(c.throw(err))
		}
	}
	if err := b.native.PropertyOp(PropertySet, key, &data); err != nil {
		panic(c.throw(err))
	}

	if self {
		return target.Set(property, c.toGoja(data.storage())) == nil
	}
	r, err := c.intrinsics.ReflectSet(goja.Undefined(), target, c.runtime.ToValue(property), c.toGoja(data.storage()), receiver)
	if err != nil {
		panic(c.throw(c.engineError("set_property", err)))
	}
	return r.ToBoolean()
}

// isSelf reports whether receiver is the bound object itself, rather than
// something inheriting from it.
func (b *binding) isSelf(receiver goja.Value) bool {
	obj, ok := receiver.(*goja.Object)
	return ok && obj == b.key.Value()
}

func (b *binding) deleteProperty(target *goja.Object, property string) bool {
	c := b.ctx
	data := c.wrap(target.Get(property))
	if err := b.native.PropertyOp(PropertyDelete, String(property), &data); err != nil {
		panic(c.throw(err))
	}
	return target.Delete(property) == nil
}

func (b *binding) apply(_ *goja.Object, this goja.Value, args []goja.Value) goja.Value {
	c := b.ctx
	call := c.newCallContext(Object{ctx: c, obj: b.key.Value()}, this, args)
	call.Native = b.native
	if err := b.native.SelfCall(call); err != nil {
		panic(c.throw(err))
	}
	return c.toGoja(call.Result.storage())
}

// finalize moves the binding to NativeFinalized and calls Finalize, the
// first time it is called.
func (b *binding) finalize() (err error) {
	if !b.base.state.CompareAndSwap(uint32(NativeBound), uint32(NativeFinalized)) {
		return nil
	}
	c := b.ctx
	c.logger.Debug().
		Str("type", fmt.Sprintf("%T", b.native)).
		Log("gojabridge: native object finalized")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gojabridge: finalize %T: panic: %v", b.native, r)
		}
	}()
	b.native.Finalize()
	return nil
}

// traceNatives calls Trace on every bound instance, returning the traced
// values. Instances that report their own object are logged: the reference
// keeps the object reachable, so it can never be finalized.
func (c *Context) traceNatives() []Value {
	var tracer Tracer
	for _, b := range c.natives {
		if b.base.State() != NativeBound {
			continue
		}
		before := len(tracer.values)
		b.native.Trace(&tracer)
		self := b.key.Value()
		if self == nil {
			continue
		}
		for _, v := range tracer.values[before:] {
			if v.storage().v == self {
				c.logger.Warning().
					Str("type", fmt.Sprintf("%T", b.native)).
					Log("gojabridge: native object retains its own engine object and will not be finalized")
				break
			}
		}
	}
	return tracer.values
}
