package events

import (
	"reflect"
	"strings"
)

// PayloadKind describes the shape of data accompanying an event
type PayloadKind uint8

const (
	KindNone PayloadKind = iota
	KindInteger
	KindBoolean
	KindFloat
	KindText
	KindStructured
)

// AllKinds lists every payload kind in declaration order
var AllKinds = []PayloadKind{KindNone, KindInteger, KindBoolean, KindFloat, KindText, KindStructured}

func (k PayloadKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// Args marks structured payloads. Structured callbacks only accept payloads
// implementing it; embed BaseArgs to satisfy it.
type Args interface {
	eventArgs()
}

// BaseArgs provides the Args marker for structured payloads
type BaseArgs struct{}

func (BaseArgs) eventArgs() {}

// KindSet is a set of payload kinds. The empty set is a wildcard.
type KindSet uint8

// KindsOf builds a set from the given kinds
func KindsOf(kinds ...PayloadKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

func (s KindSet) Add(k PayloadKind) KindSet {
	if k > KindStructured {
		return s
	}
	return s | 1<<k
}

func (s KindSet) Remove(k PayloadKind) KindSet {
	if k > KindStructured {
		return s
	}
	return s &^ (1 << k)
}

func (s KindSet) Has(k PayloadKind) bool {
	return k <= KindStructured && s&(1<<k) != 0
}

// Empty reports whether the set is the wildcard
func (s KindSet) Empty() bool { return s == 0 }

// Kinds returns the members in declaration order
func (s KindSet) Kinds() []PayloadKind {
	var kinds []PayloadKind
	for _, k := range AllKinds {
		if s.Has(k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Allows applies the declaration rule: the empty set allows every kind
func (s KindSet) Allows(k PayloadKind) bool {
	return s.Empty() || s.Has(k)
}

// Accepts reports whether a payload of the given runtime kind may be delivered
// to a callback declared with this set. Structured payloads must also pass the
// base-type check against Args unless the set is a wildcard.
func (s KindSet) Accepts(k PayloadKind, payload any) bool {
	if s.Empty() {
		return true
	}
	if !s.Has(k) {
		return false
	}
	if k == KindStructured {
		_, ok := payload.(Args)
		return ok
	}
	return true
}

func (s KindSet) String() string {
	if s.Empty() {
		return "*"
	}
	names := make([]string, 0, 6)
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, "|")
}

// ClassifyRuntimePayload maps a runtime value to its payload kind. Named types
// are classified by their underlying primitive.
func ClassifyRuntimePayload(value any) PayloadKind {
	switch value.(type) {
	case nil:
		return KindNone
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInteger
	case bool:
		return KindBoolean
	case float32, float64:
		return KindFloat
	case string:
		return KindText
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInteger
	case reflect.Bool:
		return KindBoolean
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindText
	default:
		return KindStructured
	}
}
