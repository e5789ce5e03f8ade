package gojabridge

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sync"

	"github.com/dop251/goja"
)

// Kind is the tag of a [Value]. Every value has exactly one kind.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	// KindInt is a number that is an integer in the int32 range.
	KindInt
	// KindDouble is any other number, including NaN and the infinities.
	KindDouble
	KindString
	KindObject
	KindSymbol
	KindBigInt
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindSymbol:
		return "symbol"
	case KindBigInt:
		return "bigint"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

var (
	reflectTypeBigInt = reflect.TypeOf((*big.Int)(nil))

	// primitives creates engine-independent primitive values for the Value
	// constructors, which have no runtime of their own. The goja primitive
	// representations are not tied to the runtime that made them.
	primitives struct {
		once sync.Once
		mu   sync.Mutex
		rt   *goja.Runtime
	}
)

func primitive(v any) goja.Value {
	primitives.once.Do(func() { primitives.rt = goja.New() })
	primitives.mu.Lock()
	defer primitives.mu.Unlock()
	return primitives.rt.ToValue(v)
}

// slot is the storage of one value. A nil v is undefined. ctx is the
// context the value came from, if any, and is needed for coercions that run
// script (objects) and to produce Object handles.
type slot struct {
	v   goja.Value
	ctx *Context
}

func (s slot) kind() Kind {
	v := s.v
	if v == nil || goja.IsUndefined(v) {
		return KindUndefined
	}
	if goja.IsNull(v) {
		return KindNull
	}
	switch v.(type) {
	case *goja.Object:
		return KindObject
	case *goja.Symbol:
		return KindSymbol
	}
	typ := v.ExportType()
	if typ == reflectTypeBigInt {
		return KindBigInt
	}
	if typ != nil {
		switch typ.Kind() {
		case reflect.Int64:
			if i := v.ToInteger(); i >= math.MinInt32 && i <= math.MaxInt32 {
				return KindInt
			}
			return KindDouble
		case reflect.Float64:
			return KindDouble
		case reflect.String:
			return KindString
		case reflect.Bool:
			return KindBoolean
		}
	}
	return KindUndefined
}

// Value is a tagged engine value, in one of two storage modes.
//
// An owning Value holds its own storage. The zero Value is an owning
// undefined. An aliasing Value (see [Value.Bind]) is a view onto storage
// owned elsewhere, such as an argument slot of a native call or the result
// slot of a [CallContext]: reads observe, and [Value.Set] writes, the aliased
// storage.
//
// Copying a Value with assignment copies the mode: a copy of an owning
// value is an independent owning value, a copy of an aliasing value aliases
// the same storage. An aliasing value keeps its storage reachable, but the
// storage is only meaningful while its owner still reads it: writing the
// result slot of a call that has already returned has no effect.
type Value struct {
	own slot
	ref *slot
}

// Undefined returns an undefined value.
func Undefined() Value { return Value{} }

// Null returns a null value.
func Null() Value { return Value{own: slot{v: goja.Null()}} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{own: slot{v: primitive(b)}} }

// Int returns an int value.
func Int(i int32) Value { return Value{own: slot{v: primitive(int64(i))}} }

// Double returns a number value. As in the engine, integral values in the
// int32 range (except negative zero) are stored as [KindInt].
func Double(f float64) Value { return Value{own: slot{v: primitive(f)}} }

// String returns a string value.
func String(s string) Value { return Value{own: slot{v: primitive(s)}} }

// FromObject returns an object value, or null for a null handle.
func FromObject(o Object) Value {
	if o.IsNull() {
		return Null()
	}
	return Value{own: slot{v: o.obj, ctx: o.ctx}}
}

func (c *Context) wrap(v goja.Value) Value {
	return Value{own: slot{v: v, ctx: c}}
}

func (c *Context) toGoja(s slot) goja.Value {
	if s.v == nil {
		return goja.Undefined()
	}
	return s.v
}

// target returns the storage Set writes to.
func (v *Value) target() *slot {
	if v.ref != nil {
		return v.ref
	}
	return &v.own
}

func (v Value) storage() slot {
	if v.ref != nil {
		return *v.ref
	}
	return v.own
}

// Set stores x (its current tag and payload) in v's storage. If v is an
// alias, the aliased storage is written.
func (v *Value) Set(x Value) {
	*v.target() = x.storage()
}

// Bind turns v into an alias of target's storage (or of whatever target
// itself aliases). v's own storage is reset to undefined.
func (v *Value) Bind(target *Value) {
	t := target.target()
	if t == &v.own {
		return
	}
	v.own = slot{}
	v.ref = t
}

// Unbind reverts v to an owning undefined value.
func (v *Value) Unbind() {
	v.own = slot{}
	v.ref = nil
}

// IsAlias reports whether v is a view onto storage owned elsewhere.
func (v Value) IsAlias() bool { return v.ref != nil }

// Owned returns an owning copy of v's current tag and payload.
func (v Value) Owned() Value { return Value{own: v.storage()} }

// Kind returns v's tag.
func (v Value) Kind() Kind { return v.storage().kind() }

func (v Value) IsUndefined() bool { return v.Kind() == KindUndefined }
func (v Value) IsNull() bool      { return v.Kind() == KindNull }
func (v Value) IsBoolean() bool   { return v.Kind() == KindBoolean }
func (v Value) IsInt() bool       { return v.Kind() == KindInt }
func (v Value) IsDouble() bool    { return v.Kind() == KindDouble }
func (v Value) IsString() bool    { return v.Kind() == KindString }
func (v Value) IsObject() bool    { return v.Kind() == KindObject }
func (v Value) IsSymbol() bool    { return v.Kind() == KindSymbol }
func (v Value) IsBigInt() bool    { return v.Kind() == KindBigInt }

// IsNumber reports whether v is an int or a double.
func (v Value) IsNumber() bool {
	k := v.Kind()
	return k == KindInt || k == KindDouble
}

// IsFunction reports whether v is a callable object.
func (v Value) IsFunction() bool {
	s := v.storage()
	if s.kind() != KindObject {
		return false
	}
	_, ok := goja.AssertFunction(s.v)
	return ok
}

func (v Value) mismatch(want Kind) error {
	return &TypeMismatchError{Want: want, Got: v.Kind()}
}

// AsBool returns the payload of a boolean value.
func (v Value) AsBool() (bool, error) {
	s := v.storage()
	if s.kind() != KindBoolean {
		return false, v.mismatch(KindBoolean)
	}
	return s.v.ToBoolean(), nil
}

// AsInt returns the payload of an int value.
func (v Value) AsInt() (int32, error) {
	s := v.storage()
	if s.kind() != KindInt {
		return 0, v.mismatch(KindInt)
	}
	return int32(s.v.ToInteger()), nil
}

// AsDouble returns the payload of a double value.
func (v Value) AsDouble() (float64, error) {
	s := v.storage()
	if s.kind() != KindDouble {
		return 0, v.mismatch(KindDouble)
	}
	return s.v.ToFloat(), nil
}

// AsNumber returns the payload of an int or double value.
func (v Value) AsNumber() (float64, error) {
	s := v.storage()
	switch s.kind() {
	case KindInt, KindDouble:
		return s.v.ToFloat(), nil
	}
	return 0, v.mismatch(KindDouble)
}

// AsString returns the payload of a string value.
func (v Value) AsString() (string, error) {
	s := v.storage()
	if s.kind() != KindString {
		return "", v.mismatch(KindString)
	}
	return s.v.String(), nil
}

// AsObject returns the payload of an object value.
func (v Value) AsObject() (Object, error) {
	s := v.storage()
	if s.kind() != KindObject {
		return Object{}, v.mismatch(KindObject)
	}
	return Object{ctx: s.ctx, obj: s.v.(*goja.Object)}, nil
}

// ToString converts v using the engine's string conversion. Symbols have no
// implicit string conversion, and fail.
func (v Value) ToString() (string, error) {
	s := v.storage()
	switch k := s.kind(); k {
	case KindSymbol:
		return "", &ConversionError{From: k, To: "string"}
	case KindObject:
		if s.ctx == nil {
			return "", &ConversionError{From: k, To: "string", Cause: ErrNullTarget}
		}
		r, err := s.ctx.intrinsics.String(goja.Undefined(), s.v)
		if err != nil {
			return "", &ConversionError{From: k, To: "string", Cause: s.ctx.engineError("to_string", err)}
		}
		return r.String(), nil
	case KindUndefined:
		return "undefined", nil
	}
	return s.v.String(), nil
}

// ToNumber returns the numeric payload of v. Other kinds fail unless the
// context enables implicit coercion (see [WithImplicitCoercion]).
func (v Value) ToNumber() (float64, error) {
	s := v.storage()
	k := s.kind()
	switch k {
	case KindInt, KindDouble:
		return s.v.ToFloat(), nil
	case KindSymbol, KindBigInt:
		return 0, &ConversionError{From: k, To: "number"}
	}
	if s.ctx == nil || !s.ctx.implicitCoercion {
		return 0, &ConversionError{From: k, To: "number"}
	}
	r, err := s.ctx.intrinsics.Number(goja.Undefined(), s.ctx.toGoja(s))
	if err != nil {
		return 0, &ConversionError{From: k, To: "number", Cause: s.ctx.engineError("to_number", err)}
	}
	return r.ToFloat(), nil
}

// ToBoolean returns the payload of a boolean value. Other kinds fail unless
// the context enables implicit coercion (see [WithImplicitCoercion]).
func (v Value) ToBoolean() (bool, error) {
	s := v.storage()
	k := s.kind()
	if k == KindBoolean {
		return s.v.ToBoolean(), nil
	}
	if s.ctx == nil || !s.ctx.implicitCoercion {
		return false, &ConversionError{From: k, To: "boolean"}
	}
	if s.v == nil {
		return false, nil
	}
	return s.v.ToBoolean(), nil
}

// ToObject converts v to an object, boxing primitives. Undefined and null
// fail, as do primitives that carry no context (use [Context.ToObject]).
func (v Value) ToObject() (Object, error) {
	s := v.storage()
	if s.kind() == KindObject {
		return Object{ctx: s.ctx, obj: s.v.(*goja.Object)}, nil
	}
	if s.ctx == nil {
		return Object{}, &ConversionError{From: s.kind(), To: "object"}
	}
	return s.ctx.ToObject(v)
}

// ToIntegral converts a number to an integer of the given bit width, wrapping
// modulo 2^bits, and then into the signed range if signed is set. Values that
// are not finite convert to 0.
func (v Value) ToIntegral(bits uint, signed bool) (float64, error) {
	if bits == 0 || bits > 64 {
		return 0, fmt.Errorf("gojabridge: integral width %d: %w", bits, ErrMisuse)
	}
	f, err := v.ToNumber()
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, nil
	}
	maxU := math.Ldexp(1, int(bits))
	f = math.Mod(math.Trunc(f), maxU)
	if f < 0 {
		f += maxU
	}
	if signed && f >= maxU/2 {
		f -= maxU
	}
	return f, nil
}

// ToInt32 is ToIntegral(32, true).
func (v Value) ToInt32() (int32, error) {
	f, err := v.ToIntegral(32, true)
	return int32(f), err
}

// ToUint32 is ToIntegral(32, false).
func (v Value) ToUint32() (uint32, error) {
	f, err := v.ToIntegral(32, false)
	return uint32(f), err
}

// Export returns v as a Go value, see [goja.Value.Export].
func (v Value) Export() any {
	s := v.storage()
	if s.v == nil {
		return nil
	}
	return s.v.Export()
}

// StrictEquals compares using the engine's === semantics.
func (v Value) StrictEquals(other Value) bool {
	a, b := v.storage(), other.storage()
	if a.v == nil {
		a.v = goja.Undefined()
	}
	if b.v == nil {
		b.v = goja.Undefined()
	}
	return a.v.StrictEquals(b.v)
}

// String implements [fmt.Stringer]. It never runs script.
func (v Value) String() string {
	s := v.storage()
	switch k := s.kind(); k {
	case KindUndefined:
		return "undefined"
	case KindObject:
		return "[object " + s.v.(*goja.Object).ClassName() + "]"
	case KindString:
		return fmt.Sprintf("%q", s.v.String())
	default:
		return s.v.String()
	}
}
