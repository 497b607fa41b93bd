// Package secrets holds the typed, masked values and the immutable tree a
// resolve pass produces.
//
// Every default rendering path in this package (String, GoString, fmt verbs
// that consult them) yields the literal mask "***". Raw values are reachable
// only through explicit Get, Cast, or a reveal projection.
package secrets

import (
	"fmt"
	"strconv"
)

// Mask is the literal every secret-bearing type renders as by default.
const Mask = "***"

// Type is the declared leaf type of a secret reference.
type Type string

const (
	TypeString Type = "str"
	TypeInt    Type = "int"
)

// ParseType validates a type string from a document. Empty means TypeString.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case "":
		return TypeString, nil
	case TypeString, TypeInt:
		return Type(s), nil
	default:
		return "", fmt.Errorf("unsupported type: %q (want str or int)", s)
	}
}

// TypeCastError reports a value that does not parse under the declared type.
// Value carries the offending text: the raw secret during resolution, or the
// caller-supplied candidate during Equals.
type TypeCastError struct {
	Value string
}

func (e TypeCastError) Error() string {
	return fmt.Sprintf("value %q is not a valid int", e.Value)
}

// DuplicatePathError reports two reference entries landing on the same
// destination path within one resolve.
type DuplicatePathError struct {
	Path string
}

func (e DuplicatePathError) Error() string {
	return "duplicate secret path: " + e.Path
}

// Value is an immutable (raw, declared type) pair.
type Value struct {
	raw string
	typ Type
}

// NewValue wraps a raw string under a declared type. An empty type means
// TypeString.
func NewValue(raw string, typ Type) Value {
	if typ == "" {
		typ = TypeString
	}
	return Value{raw: raw, typ: typ}
}

// Get returns the stored raw string verbatim.
func (v Value) Get() string { return v.raw }

// Type returns the declared type.
func (v Value) Type() Type { return v.typ }

// Cast converts the raw string under the declared type: the string itself
// for TypeString, a parsed int for TypeInt. Parse failure is a
// TypeCastError carrying the raw value.
func (v Value) Cast() (any, error) {
	switch v.typ {
	case TypeInt:
		n, err := strconv.Atoi(v.raw)
		if err != nil {
			return nil, TypeCastError{Value: v.raw}
		}
		return n, nil
	default:
		return v.raw, nil
	}
}

// Equals compares a candidate under the declared type's semantics. For
// TypeInt both sides are parsed and compared numerically; a candidate that
// does not parse is a TypeCastError. The stored raw is assumed castable
// because the resolver validates it eagerly.
func (v Value) Equals(candidate string) (bool, error) {
	if v.typ == TypeInt {
		c, err := strconv.Atoi(candidate)
		if err != nil {
			return false, TypeCastError{Value: candidate}
		}
		r, err := strconv.Atoi(v.raw)
		if err != nil {
			return false, TypeCastError{Value: v.raw}
		}
		return c == r, nil
	}
	return candidate == v.raw, nil
}

// String implements fmt.Stringer, always masked.
func (v Value) String() string { return Mask }

// GoString implements fmt.GoStringer for %#v formatting, always masked.
func (v Value) GoString() string { return Mask }
