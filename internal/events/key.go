package events

import (
	"fmt"
	"reflect"
	"strconv"
)

// Variant identifies which field of a Key is active
type Variant uint8

const (
	VariantInvalid Variant = iota
	VariantInteger
	VariantText
	VariantSymbol
)

func (v Variant) String() string {
	switch v {
	case VariantInteger:
		return "integer"
	case VariantText:
		return "text"
	case VariantSymbol:
		return "symbol"
	default:
		return "invalid"
	}
}

// Symbol is an enum-like identifier qualified by the type that owns it.
// Two enums with a member of the same name are different symbols. Pkg is the
// owning type's import path when the symbol was derived from a Go value; it
// keeps same-named types from different packages apart.
type Symbol struct {
	Pkg    string
	Type   string
	Member string
}

// String returns Type.Member, without the package
func (s Symbol) String() string {
	return s.Type + "." + s.Member
}

// Qualified returns pkg.Type.Member, or Type.Member when there is no package
func (s Symbol) Qualified() string {
	if s.Pkg == "" {
		return s.String()
	}
	return s.Pkg + "." + s.String()
}

// Key identifies an event without producer and consumer sharing a compile-time type.
// Keys are comparable and can be used directly as map keys. The zero Key is invalid.
type Key struct {
	variant Variant
	integer int64
	text    string
	symbol  Symbol
}

// IntKey creates an integer key
func IntKey(i int64) Key {
	return Key{variant: VariantInteger, integer: i}
}

// TextKey creates a text key
func TextKey(s string) Key {
	return Key{variant: VariantText, text: s}
}

// SymbolKey creates a symbolic key from an owning type name and a member name.
// Empty parts are allowed; such keys only ever match themselves.
func SymbolKey(owningType, member string) Key {
	return Key{variant: VariantSymbol, symbol: Symbol{Type: owningType, Member: member}}
}

// QualifiedSymbolKey creates a symbolic key whose owning type is identified by
// import path and type name, as SymbolOf does
func QualifiedSymbolKey(pkgPath, owningType, member string) Key {
	return Key{variant: VariantSymbol, symbol: Symbol{Pkg: pkgPath, Type: owningType, Member: member}}
}

// SymbolOf creates a symbolic key from an enum-like value. The owning type is
// the value's Go type, by import path and name, with pointers dereferenced; the
// member is its String form.
//
//	type GameEvents int
//	func (e GameEvents) String() string { ... }
//	events.SymbolOf(PlayerDied) // GameEvents.PlayerDied, Pkg set to the declaring package
func SymbolOf[E fmt.Stringer](e E) Key {
	t := reflect.TypeOf(e)
	if t == nil {
		return QualifiedSymbolKey("", "", "")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return QualifiedSymbolKey(t.PkgPath(), t.Name(), e.String())
}

// Variant returns the active variant
func (k Key) Variant() Variant { return k.variant }

// Int returns the integer value and whether the key is an integer key
func (k Key) Int() (int64, bool) { return k.integer, k.variant == VariantInteger }

// Text returns the text value and whether the key is a text key
func (k Key) Text() (string, bool) { return k.text, k.variant == VariantText }

// Symbol returns the symbol and whether the key is a symbolic key
func (k Key) Symbol() (Symbol, bool) { return k.symbol, k.variant == VariantSymbol }

// IsValid reports whether the key has an active variant
func (k Key) IsValid() bool {
	return k.variant == VariantInteger || k.variant == VariantText || k.variant == VariantSymbol
}

// Equal reports whether both keys have the same variant and the same value within it
func (k Key) Equal(other Key) bool {
	return k == other
}

// String returns the canonical form used in diagnostics
func (k Key) String() string {
	switch k.variant {
	case VariantInteger:
		return strconv.FormatInt(k.integer, 10)
	case VariantText:
		return k.text
	case VariantSymbol:
		return k.symbol.String()
	default:
		return "<invalid>"
	}
}

// Qualified returns a form that is unique across variants and packages:
// the variant name, a colon, then the value (symbols with their package).
// Dispatch statistics are stored under it.
func (k Key) Qualified() string {
	switch k.variant {
	case VariantSymbol:
		return k.variant.String() + ":" + k.symbol.Qualified()
	case VariantInteger, VariantText:
		return k.variant.String() + ":" + k.String()
	default:
		return k.String()
	}
}
