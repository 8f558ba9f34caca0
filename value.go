// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import (
	"strconv"

	"github.com/creachadair/jshape/internal/escape"

	"github.com/shopspring/decimal"
	"go4.org/mem"
)

// A Value is a parsed JSON value. The concrete type is one of:
//
//	nil              null
//	bool             true, false
//	int64            integer kinds
//	float64          Float
//	decimal.Decimal  Decimal
//	string           String, Char
//	*Object          objects (records and maps)
//	*List            arrays and tuples
type Value = any

// An Object is a collection of key-value members. Member order mirrors the
// order of first appearance in the input document.
type Object struct {
	Members []*Member

	frozen bool
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// NewObject constructs an empty, unfrozen object.
func NewObject() *Object { return new(Object) }

// Find returns the member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Set updates the member of o with the given key, adding it if necessary.
// Set panics if o is frozen.
func (o *Object) Set(key string, v Value) {
	if o.frozen {
		panic("jshape: set member of frozen object")
	}
	if m := o.Find(key); m != nil {
		m.Value = v
		return
	}
	o.Members = append(o.Members, &Member{Key: key, Value: v})
}

// Len reports the number of members of o.
func (o *Object) Len() int { return len(o.Members) }

// IsFrozen reports whether o has been frozen.
func (o *Object) IsFrozen() bool { return o.frozen }

// A List is a sequence of values.
type List struct {
	Values []Value

	frozen bool
}

// NewList constructs an empty, unfrozen list with the given capacity hint.
func NewList(hint int) *List {
	if hint > 0 {
		return &List{Values: make([]Value, 0, hint)}
	}
	return new(List)
}

// Append adds v to the end of lst. Append panics if lst is frozen.
func (lst *List) Append(v Value) {
	if lst.frozen {
		panic("jshape: append to frozen list")
	}
	lst.Values = append(lst.Values, v)
}

// Len reports the number of values in lst.
func (lst *List) Len() int { return len(lst.Values) }

// IsFrozen reports whether lst has been frozen.
func (lst *List) IsFrozen() bool { return lst.frozen }

// Freeze marks v and all containers reachable from it as read-only, and
// returns v. Subsequent calls to Set or Append on a frozen container panic.
// Freezing a scalar has no effect.
func Freeze(v Value) Value {
	switch t := v.(type) {
	case *Object:
		t.frozen = true
		for _, m := range t.Members {
			Freeze(m.Value)
		}
	case *List:
		t.frozen = true
		for _, e := range t.Values {
			Freeze(e)
		}
	}
	return v
}

// JSONString encodes v as RFC 8259 JSON text.
func JSONString(v Value) string { return string(appendJSON(nil, v)) }

func appendJSON(dst []byte, v Value) []byte {
	switch t := v.(type) {
	case nil:
		return append(dst, "null"...)
	case bool:
		return strconv.AppendBool(dst, t)
	case int64:
		return strconv.AppendInt(dst, t, 10)
	case float64:
		return strconv.AppendFloat(dst, t, 'g', -1, 64)
	case decimal.Decimal:
		return append(dst, t.String()...)
	case string:
		return escape.AppendQuote(dst, mem.S(t))
	case *Object:
		dst = append(dst, '{')
		for i, m := range t.Members {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = escape.AppendQuote(dst, mem.S(m.Key))
			dst = append(dst, ':')
			dst = appendJSON(dst, m.Value)
		}
		return append(dst, '}')
	case *List:
		dst = append(dst, '[')
		for i, e := range t.Values {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendJSON(dst, e)
		}
		return append(dst, ']')
	default:
		panic("jshape: invalid value type")
	}
}
