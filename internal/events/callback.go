package events

import (
	"fmt"
	"math"
	"reflect"

	buserr "github.com/KirkDiggler/gridbus/internal/errors"
)

// Identity is the equality token of a Callback: who registered it, which
// function it wraps and for which kinds. Fn is the function's code pointer;
// closures created from one literal share it, so Owner tells those apart.
type Identity struct {
	Owner string
	Fn    uintptr
	Kinds KindSet
}

func (i Identity) String() string {
	return i.Owner + "[" + i.Kinds.String() + "]"
}

// Callback is a type-erased subscriber function. The bus stores only Callbacks;
// the generic adapters below know how to convert an opaque payload back into
// the subscriber's declared type.
type Callback interface {
	// Kinds returns the payload kinds the callback was declared for. Empty means any.
	Kinds() KindSet

	// Identity returns the token used for dedup and removal
	Identity() Identity

	// Invoke converts payload to the declared type and calls the subscriber function
	Invoke(payload any) error
}

// Equal compares callbacks by identity token only
func Equal(a, b Callback) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Identity() == b.Identity()
}

// funcPointer returns the code pointer of a function value, 0 for nil
func funcPointer(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return 0
	}
	return v.Pointer()
}

type voidCallback struct {
	owner string
	ptr   uintptr
	fn    func()
}

// Void wraps a function that takes no payload
func Void(owner string, fn func()) Callback {
	return &voidCallback{owner: owner, ptr: funcPointer(fn), fn: fn}
}

func (c *voidCallback) Kinds() KindSet { return KindsOf(KindNone) }

func (c *voidCallback) Identity() Identity {
	return Identity{Owner: c.owner, Fn: c.ptr, Kinds: c.Kinds()}
}

func (c *voidCallback) Invoke(any) (err error) {
	defer recoverHandler(c.owner, &err)
	c.fn()
	return nil
}

type typedCallback[T any] struct {
	owner string
	ptr   uintptr
	kind  PayloadKind
	fn    func(T)
	cast  func(any) (T, bool)
}

func (c *typedCallback[T]) Kinds() KindSet { return KindsOf(c.kind) }

func (c *typedCallback[T]) Identity() Identity {
	return Identity{Owner: c.owner, Fn: c.ptr, Kinds: c.Kinds()}
}

func (c *typedCallback[T]) Invoke(payload any) (err error) {
	v, ok := c.cast(payload)
	if !ok {
		var zero T
		return buserr.PayloadKindMismatchf("callback %s expects %T, got %T", c.owner, zero, payload).
			WithMeta("owner", c.owner).
			WithMeta("declared", c.kind.String())
	}

	defer recoverHandler(c.owner, &err)
	c.fn(v)
	return nil
}

// Int wraps a function taking an integer payload. Integers of any width are converted to int.
func Int(owner string, fn func(int)) Callback {
	return &typedCallback[int]{owner: owner, ptr: funcPointer(fn), kind: KindInteger, fn: fn, cast: castInt}
}

// Bool wraps a function taking a boolean payload
func Bool(owner string, fn func(bool)) Callback {
	return &typedCallback[bool]{owner: owner, ptr: funcPointer(fn), kind: KindBoolean, fn: fn, cast: castBool}
}

// Float wraps a function taking a float payload. float32 payloads are widened.
func Float(owner string, fn func(float64)) Callback {
	return &typedCallback[float64]{owner: owner, ptr: funcPointer(fn), kind: KindFloat, fn: fn, cast: castFloat}
}

// Text wraps a function taking a string payload
func Text(owner string, fn func(string)) Callback {
	return &typedCallback[string]{owner: owner, ptr: funcPointer(fn), kind: KindText, fn: fn, cast: castText}
}

// Structured wraps a function taking a structured payload of type T. A payload
// that passes the Args check but is not a T fails with a payload kind mismatch.
func Structured[T Args](owner string, fn func(T)) Callback {
	return &typedCallback[T]{owner: owner, ptr: funcPointer(fn), kind: KindStructured, fn: fn, cast: func(payload any) (T, bool) {
		v, ok := payload.(T)
		return v, ok
	}}
}

type anyCallback struct {
	owner string
	ptr   uintptr
	fn    func(any)
}

// Any wraps a function that accepts every payload kind, including none (nil)
func Any(owner string, fn func(any)) Callback {
	return &anyCallback{owner: owner, ptr: funcPointer(fn), fn: fn}
}

func (c *anyCallback) Kinds() KindSet { return 0 }

func (c *anyCallback) Identity() Identity {
	return Identity{Owner: c.owner, Fn: c.ptr}
}

func (c *anyCallback) Invoke(payload any) (err error) {
	defer recoverHandler(c.owner, &err)
	c.fn(payload)
	return nil
}

var argsType = reflect.TypeOf((*Args)(nil)).Elem()

// Wrap builds a callback for a declared kind from a plain function value:
//
//	KindNone       func()
//	KindInteger    func(int)
//	KindBoolean    func(bool)
//	KindFloat      func(float64)
//	KindText       func(string)
//	KindStructured func(T) where T implements Args
func Wrap(kind PayloadKind, owner string, fn any) (Callback, error) {
	if fn == nil {
		return nil, buserr.InvalidArgument("callback function cannot be nil")
	}

	switch kind {
	case KindNone:
		if f, ok := fn.(func()); ok {
			return Void(owner, f), nil
		}
	case KindInteger:
		if f, ok := fn.(func(int)); ok {
			return Int(owner, f), nil
		}
	case KindBoolean:
		if f, ok := fn.(func(bool)); ok {
			return Bool(owner, f), nil
		}
	case KindFloat:
		if f, ok := fn.(func(float64)); ok {
			return Float(owner, f), nil
		}
	case KindText:
		if f, ok := fn.(func(string)); ok {
			return Text(owner, f), nil
		}
	case KindStructured:
		if cb, ok := wrapStructured(owner, fn); ok {
			return cb, nil
		}
	default:
		return nil, buserr.InvalidArgumentf("unknown payload kind %d", kind)
	}

	return nil, buserr.InvalidArgumentf("function %T does not fit payload kind %s", fn, kind)
}

// wrapStructured adapts func(T) for an arbitrary Args type T known only at runtime
func wrapStructured(owner string, fn any) (Callback, bool) {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func || ft.NumIn() != 1 || ft.NumOut() != 0 || fv.IsNil() {
		return nil, false
	}
	in := ft.In(0)
	if !in.Implements(argsType) {
		return nil, false
	}

	return &typedCallback[Args]{
		owner: owner,
		ptr:   fv.Pointer(),
		kind:  KindStructured,
		fn: func(a Args) {
			fv.Call([]reflect.Value{reflect.ValueOf(a)})
		},
		cast: func(payload any) (Args, bool) {
			a, ok := payload.(Args)
			if !ok || !reflect.TypeOf(a).AssignableTo(in) {
				return nil, false
			}
			return a, true
		},
	}, true
}

func recoverHandler(owner string, err *error) {
	if r := recover(); r != nil {
		*err = buserr.HandlerPanicf("callback %s panicked: %v", owner, r).
			WithMeta("owner", owner).
			WithMeta("panic", fmt.Sprint(r))
	}
}

func castInt(payload any) (int, bool) {
	switch v := payload.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return intFromInt64(v)
	case uint:
		return intFromUint64(uint64(v))
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return intFromUint64(uint64(v))
	case uint64:
		return intFromUint64(v)
	case nil:
		return 0, false
	}

	rv := reflect.ValueOf(payload)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intFromInt64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return intFromUint64(rv.Uint())
	}
	return 0, false
}

// Values outside int's range are a mismatch, not a wrap-around
func intFromInt64(v int64) (int, bool) {
	if v > math.MaxInt || v < math.MinInt {
		return 0, false
	}
	return int(v), true
}

func intFromUint64(v uint64) (int, bool) {
	if v > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

func castBool(payload any) (bool, bool) {
	if v, ok := payload.(bool); ok {
		return v, true
	}
	if payload == nil {
		return false, false
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.Bool {
		return rv.Bool(), true
	}
	return false, false
}

func castFloat(payload any) (float64, bool) {
	switch v := payload.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
		return rv.Float(), true
	}
	return 0, false
}

func castText(payload any) (string, bool) {
	if v, ok := payload.(string); ok {
		return v, true
	}
	if payload == nil {
		return "", false
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}
