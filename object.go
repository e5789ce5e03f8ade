package gojabridge

import (
	"fmt"
	"iter"

	"github.com/dop251/goja"
)

// Object is a non-owning handle to an engine object. The zero Object is the
// null handle, and every operation on it fails with [ErrNullTarget].
//
// The handle keeps the object reachable for as long as the handle itself is
// reachable from Go. Handles that must stay valid beyond the current call
// without being held by Go code (e.g. only stored in a [Value] slot of
// engine-owned storage) are kept alive with the [RootRegistry].
type Object struct {
	ctx *Context
	obj *goja.Object
}

// IsNull reports whether o is the null handle.
func (o Object) IsNull() bool { return o.obj == nil }

// Equal reports whether o and other refer to the same engine object. Two
// null handles are equal.
func (o Object) Equal(other Object) bool { return o.obj == other.obj }

// Context returns the context that owns the object.
func (o Object) Context() *Context { return o.ctx }

// Unwrap returns the underlying goja object, nil for the null handle.
func (o Object) Unwrap() *goja.Object { return o.obj }

// Value returns o as a [Value].
func (o Object) Value() Value { return FromObject(o) }

func (o Object) check(op string) error {
	if o.obj == nil || o.ctx == nil {
		return fmt.Errorf("gojabridge: %s: %w", op, ErrNullTarget)
	}
	if o.ctx.closed {
		return fmt.Errorf("gojabridge: %s: %w", op, ErrClosed)
	}
	return nil
}

func keyString(op string, key Value) (string, error) {
	name, err := key.ToString()
	if err != nil {
		return "", fmt.Errorf("gojabridge: %s: invalid key: %w", op, err)
	}
	return name, nil
}

// Get reads the named property, following the prototype chain. Missing
// properties read as undefined.
func (o Object) Get(name string) (Value, error) {
	if err := o.check("get_property"); err != nil {
		return Value{}, err
	}
	c := o.ctx
	r, err := c.intrinsics.ReflectGet(goja.Undefined(), o.obj, c.runtime.ToValue(name))
	if err != nil {
		return Value{}, c.engineError("get_property", err)
	}
	return c.wrap(r), nil
}

// GetValue is [Object.Get] with the key converted by [Value.ToString].
func (o Object) GetValue(key Value) (Value, error) {
	name, err := keyString("get_property", key)
	if err != nil {
		return Value{}, err
	}
	return o.Get(name)
}

// Set assigns the named property, returning v. Assignment uses strict
// semantics: writing a read-only property fails with a [*ScriptError]
// holding a TypeError, and leaves the property unchanged.
func (o Object) Set(name string, v Value) (Value, error) {
	if err := o.check("set_property"); err != nil {
		return Value{}, err
	}
	c := o.ctx
	if err := o.obj.Set(name, c.toGoja(v.storage())); err != nil {
		return Value{}, c.engineError("set_property", err)
	}
	return v, nil
}

// SetValue is [Object.Set] with the key converted by [Value.ToString].
func (o Object) SetValue(key Value, v Value) (Value, error) {
	name, err := keyString("set_property", key)
	if err != nil {
		return Value{}, err
	}
	return o.Set(name, v)
}

// Has reports whether the property exists on o or its prototype chain.
func (o Object) Has(name string) (bool, error) {
	if err := o.check("has_property"); err != nil {
		return false, err
	}
	c := o.ctx
	r, err := c.intrinsics.ReflectHas(goja.Undefined(), o.obj, c.runtime.ToValue(name))
	if err != nil {
		return false, c.engineError("has_property", err)
	}
	return r.ToBoolean(), nil
}

// HasValue is [Object.Has] with the key converted by [Value.ToString].
func (o Object) HasValue(key Value) (bool, error) {
	name, err := keyString("has_property", key)
	if err != nil {
		return false, err
	}
	return o.Has(name)
}

// HasOwn reports whether o itself has the property.
func (o Object) HasOwn(name string) (bool, error) {
	if err := o.check("has_own_property"); err != nil {
		return false, err
	}
	c := o.ctx
	r, err := c.intrinsics.HasOwnProperty(o.obj, c.runtime.ToValue(name))
	if err != nil {
		return false, c.engineError("has_own_property", err)
	}
	return r.ToBoolean(), nil
}

// HasOwnValue is [Object.HasOwn] with the key converted by [Value.ToString].
func (o Object) HasOwnValue(key Value) (bool, error) {
	name, err := keyString("has_own_property", key)
	if err != nil {
		return false, err
	}
	return o.HasOwn(name)
}

// Delete removes the named own property. Deleting a permanent property fails
// with a [*ScriptError]. Deleting a missing property succeeds.
func (o Object) Delete(name string) error {
	if err := o.check("delete_property"); err != nil {
		return err
	}
	if err := o.obj.Delete(name); err != nil {
		return o.ctx.engineError("delete_property", err)
	}
	return nil
}

// DeleteValue is [Object.Delete] with the key converted by [Value.ToString].
func (o Object) DeleteValue(key Value) error {
	name, err := keyString("delete_property", key)
	if err != nil {
		return err
	}
	return o.Delete(name)
}

// Iterate returns an iterator over a snapshot of o's own enumerable keys.
func (o Object) Iterate() (*PropertyIterator, error) {
	return newPropertyIterator(o)
}

// Properties returns the own enumerable properties of o, as key/value pairs.
// The key set is captured when iteration starts, values are read as the
// sequence is consumed. Iteration stops early if a value cannot be read.
func (o Object) Properties() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		it, err := o.Iterate()
		if err != nil {
			return
		}
		for ; !it.Done(); _ = it.Next() {
			v, err := it.Value()
			if err != nil {
				return
			}
			if !yield(it.Key(), v) {
				return
			}
		}
	}
}

// Prototype returns o's prototype, a null handle if it has none.
func (o Object) Prototype() (Object, error) {
	if err := o.check("get_prototype"); err != nil {
		return Object{}, err
	}
	c := o.ctx
	r, err := c.intrinsics.ReflectGetPrototypeOf(goja.Undefined(), o.obj)
	if err != nil {
		return Object{}, c.engineError("get_prototype", err)
	}
	return c.objectOf(r), nil
}

// SetPrototype replaces o's prototype. A null handle clears it.
func (o Object) SetPrototype(proto Object) error {
	if err := o.check("set_prototype"); err != nil {
		return err
	}
	if err := o.obj.SetPrototype(proto.obj); err != nil {
		return o.ctx.engineError("set_prototype", err)
	}
	return nil
}

// Parent returns o's parent scope link. Objects that were never given one
// are parented to the global object, which itself has no parent.
func (o Object) Parent() (Object, error) {
	if err := o.check("get_parent"); err != nil {
		return Object{}, err
	}
	c := o.ctx
	r, err := c.intrinsics.ReflectGet(goja.Undefined(), o.obj, c.parentKey)
	if err != nil {
		return Object{}, c.engineError("get_parent", err)
	}
	if r == nil || goja.IsUndefined(r) {
		if o.obj == c.runtime.GlobalObject() {
			return Object{}, nil
		}
		return c.Global(), nil
	}
	return c.objectOf(r), nil
}

// SetParent replaces o's parent scope link. A null handle detaches o.
func (o Object) SetParent(parent Object) error {
	if err := o.check("set_parent"); err != nil {
		return err
	}
	c := o.ctx
	var v goja.Value = goja.Null()
	if parent.obj != nil {
		v = parent.obj
	}
	if err := o.obj.DefineDataPropertySymbol(c.parentKey, v, goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE); err != nil {
		return c.engineError("set_parent", err)
	}
	return nil
}

// Seal makes o non-extensible and its properties permanent. With deep set,
// every object reachable through own data properties is sealed too.
func (o Object) Seal(deep bool) error {
	if err := o.check("seal"); err != nil {
		return err
	}
	if !deep {
		return o.seal()
	}
	seen := make(map[*goja.Object]struct{})
	pending := []*goja.Object{o.obj}
	for len(pending) != 0 {
		obj := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := seen[obj]; ok {
			continue
		}
		seen[obj] = struct{}{}
		child := Object{ctx: o.ctx, obj: obj}
		if err := child.seal(); err != nil {
			return err
		}
		names, err := o.ctx.stringList("seal", o.ctx.intrinsics.ObjectGetOwnPropertyNames, obj)
		if err != nil {
			return err
		}
		for _, name := range names {
			desc, err := child.descriptor(name)
			if err != nil {
				return err
			}
			if desc == nil {
				continue
			}
			if v, ok := desc.Get("value").(*goja.Object); ok {
				pending = append(pending, v)
			}
		}
	}
	return nil
}

func (o Object) seal() error {
	if _, err := o.ctx.intrinsics.ObjectSeal(goja.Undefined(), o.obj); err != nil {
		return o.ctx.engineError("seal", err)
	}
	return nil
}

// IsArray reports whether o is an array. The null handle is not.
func (o Object) IsArray() bool {
	if o.obj == nil || o.ctx == nil {
		return false
	}
	r, err := o.ctx.intrinsics.ArrayIsArray(goja.Undefined(), o.obj)
	return err == nil && r.ToBoolean()
}

// IsFunction reports whether o is callable. The null handle is not.
func (o Object) IsFunction() bool {
	if o.obj == nil {
		return false
	}
	_, ok := goja.AssertFunction(o.obj)
	return ok
}

// ClassName returns the engine class name, e.g. "Object" or "Array".
func (o Object) ClassName() string {
	if o.obj == nil {
		return ""
	}
	return o.obj.ClassName()
}

// Constructor returns the value of o's constructor property, as an object.
func (o Object) Constructor() (Object, error) {
	v, err := o.Get("constructor")
	if err != nil {
		return Object{}, err
	}
	if !v.IsObject() {
		return Object{}, nil
	}
	return v.AsObject()
}

// Export returns o as a Go value, see [goja.Object.Export].
func (o Object) Export() any {
	if o.obj == nil {
		return nil
	}
	return o.obj.Export()
}

// Call invokes the method name of o, with o as the receiver.
func (o Object) Call(name string, args *Arguments) (Value, error) {
	fn, err := o.Get(name)
	if err != nil {
		return Value{}, err
	}
	f, err := fn.AsObject()
	if err != nil {
		return Value{}, fmt.Errorf("gojabridge: call %q: %w", name, ErrNotCallable)
	}
	return o.Apply(f, args)
}

// Apply calls fn with o as the receiver.
func (o Object) Apply(fn Object, args *Arguments) (Value, error) {
	if err := o.check("apply"); err != nil {
		return Value{}, err
	}
	return fn.Invoke(o, args)
}

// Invoke calls o as a function with the given receiver. A null receiver
// passes undefined.
func (o Object) Invoke(this Object, args *Arguments) (Value, error) {
	if err := o.check("call"); err != nil {
		return Value{}, err
	}
	callable, ok := goja.AssertFunction(o.obj)
	if !ok {
		return Value{}, fmt.Errorf("gojabridge: call: %w", ErrNotCallable)
	}
	c := o.ctx
	var recv goja.Value = goja.Undefined()
	if this.obj != nil {
		recv = this.obj
	}
	r, err := callable(recv, args.engineValues(c)...)
	if err != nil {
		return Value{}, c.engineError("call", err)
	}
	return c.wrap(r), nil
}

// CallGlobal calls o as a function with the global object as receiver.
func (o Object) CallGlobal(args *Arguments) (Value, error) {
	if err := o.check("call"); err != nil {
		return Value{}, err
	}
	return o.Invoke(o.ctx.Global(), args)
}

// Construct calls o as a constructor, like the new operator.
func (o Object) Construct(args *Arguments) (Object, error) {
	if err := o.check("construct"); err != nil {
		return Object{}, err
	}
	ctor, ok := goja.AssertConstructor(o.obj)
	if !ok {
		return Object{}, fmt.Errorf("gojabridge: construct: %w", ErrNotCallable)
	}
	c := o.ctx
	r, err := ctor(nil, args.engineValues(c)...)
	if err != nil {
		return Object{}, c.engineError("construct", err)
	}
	return Object{ctx: c, obj: r}, nil
}

func (c *Context) objectOf(v goja.Value) Object {
	if obj, ok := v.(*goja.Object); ok {
		return Object{ctx: c, obj: obj}
	}
	return Object{}
}
