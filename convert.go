// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/creachadair/mds/mapset"
	"github.com/shopspring/decimal"
)

// Convert coerces an already-parsed value to the expected type t, applying
// the same renaming, projection, and null policies as Parse. The input value
// is not modified; containers are rebuilt.
//
// Convert is also used internally to finish union subtrees, which are parsed
// generically and converted to the union after the subtree is complete.
func Convert(v Value, opts Options, t Type) (Value, error) {
	return convertValue(v, t, opts.normalize())
}

func convertValue(v Value, t Type, opts Options) (Value, error) {
	rt, err := resolveType(t)
	if err != nil {
		return nil, err
	}
	switch w := rt.(type) {
	case Any:
		return v, nil
	case Scalar:
		return convertScalar(v, w.Kind)
	case *Union:
		return convertUnion(v, w, opts)
	case *Record:
		return convertRecord(v, w, opts)
	case *Map:
		return convertMap(v, w, opts)
	case *Array:
		return convertArray(v, w, opts)
	case *Tuple:
		return convertTuple(v, w, opts)
	}
	return nil, errorf(UnsupportedType, "cannot convert to %s", rt.typeLabel())
}

// convertUnion tries the members of u in declaration order and returns the
// first successful conversion.
func convertUnion(v Value, u *Union, opts Options) (Value, error) {
	for _, mem := range u.Members {
		if out, err := convertValue(v, mem, opts); err == nil {
			return out, nil
		}
	}
	return nil, errorf(ConversionFailure,
		"value %s does not match any member of the union", valueLabel(v))
}

func convertScalar(v Value, k Kind) (Value, error) {
	switch t := v.(type) {
	case nil:
		if k == Null {
			return nil, nil
		}
	case bool:
		if k == Bool {
			return t, nil
		}
	case int64:
		switch k {
		case Int, Int8, Int16, Int32, Byte, Uint16, Uint32:
			if lo, hi := kindRange(k); t < lo || t > hi {
				return nil, errorf(ConversionFailure, "value %d out of range for %s", t, k)
			}
			return t, nil
		case Float:
			return float64(t), nil
		case Decimal:
			return decimal.NewFromInt(t), nil
		}
	case float64:
		switch k {
		case Float:
			return t, nil
		case Decimal:
			return decimal.NewFromFloat(t), nil
		}
	case decimal.Decimal:
		switch k {
		case Decimal:
			return t, nil
		case Float:
			return t.InexactFloat64(), nil
		}
	case string:
		switch k {
		case String:
			return t, nil
		case Char:
			if utf8.RuneCountInString(t) == 1 {
				return t, nil
			}
			return nil, errorf(ConversionFailure, "char value %q must be a single character", t)
		}
	}
	return nil, errorf(ConversionFailure, "cannot convert %s to %s", valueLabel(v), k)
}

func convertRecord(v Value, rec *Record, opts Options) (Value, error) {
	obj, ok := v.(*Object)
	if !ok {
		return nil, errorf(ConversionFailure,
			"cannot convert %s to %s", valueLabel(v), rec.typeLabel())
	}
	fields := rec.fieldMap()
	seen := mapset.New[string]()
	out := NewObject()
	for _, mem := range obj.Members {
		fld := fields[mem.Key]
		if fld == nil {
			if rec.Rest != nil {
				cv, err := convertValue(mem.Value, rec.Rest, opts)
				if err != nil {
					return nil, err
				}
				out.Set(mem.Key, cv)
			} else if !opts.AllowProjection {
				return nil, errorf(UndefinedField, "undefined field %q", mem.Key)
			}
			continue
		}
		seen.Add(mem.Key)
		if mem.Value == nil {
			rft, err := resolveType(fld.Type)
			if err != nil {
				return nil, err
			}
			if fld.Nilable || isNilableType(rft) {
				out.Set(fld.Name, nil)
				continue
			}
			if !fld.Required && opts.NilAsOptional {
				continue
			}
			return nil, errorf(ConversionFailure, "cannot convert null to %s", rft.typeLabel())
		}
		cv, err := convertValue(mem.Value, fld.Type, opts)
		if err != nil {
			return nil, err
		}
		out.Set(fld.Name, cv)
	}

	// Declared fields the input never mentioned, in declaration order.
	for _, fld := range rec.Fields {
		if seen.Has(fld.wireKey()) {
			continue
		}
		if opts.AbsentAsNilable && fld.Nilable {
			out.Set(fld.Name, nil)
			continue
		}
		if fld.Required {
			return nil, errorf(RequiredFieldMissing,
				"required field %q not present in JSON", fld.Name)
		}
	}
	if rec.ReadOnly {
		Freeze(out)
	}
	return out, nil
}

func convertMap(v Value, mt *Map, opts Options) (Value, error) {
	obj, ok := v.(*Object)
	if !ok {
		return nil, errorf(ConversionFailure, "cannot convert %s to map", valueLabel(v))
	}
	out := NewObject()
	for _, mem := range obj.Members {
		cv, err := convertValue(mem.Value, mt.Value, opts)
		if err != nil {
			return nil, err
		}
		out.Set(mem.Key, cv)
	}
	if mt.ReadOnly {
		Freeze(out)
	}
	return out, nil
}

func convertArray(v Value, at *Array, opts Options) (Value, error) {
	lst, ok := v.(*List)
	if !ok {
		return nil, errorf(ConversionFailure, "cannot convert %s to array", valueLabel(v))
	}
	vals := lst.Values
	if at.Size >= 0 && len(vals) > at.Size {
		if !opts.AllowProjection {
			return nil, errorf(ArrayTooLong,
				"array size exceeds the declared length %d", at.Size)
		}
		vals = vals[:at.Size]
	}
	out := NewList(len(vals))
	for _, e := range vals {
		cv, err := convertValue(e, at.Elem, opts)
		if err != nil {
			return nil, err
		}
		out.Append(cv)
	}
	if at.ReadOnly {
		Freeze(out)
	}
	return out, nil
}

func convertTuple(v Value, tt *Tuple, opts Options) (Value, error) {
	lst, ok := v.(*List)
	if !ok {
		return nil, errorf(ConversionFailure, "cannot convert %s to tuple", valueLabel(v))
	}
	vals := lst.Values
	if len(vals) > len(tt.Elems) {
		if !opts.AllowProjection {
			return nil, errorf(ArrayTooLong,
				"array size exceeds the declared length %d", len(tt.Elems))
		}
		vals = vals[:len(tt.Elems)]
	}
	out := NewList(len(vals))
	for i, e := range vals {
		cv, err := convertValue(e, tt.Elems[i], opts)
		if err != nil {
			return nil, err
		}
		out.Append(cv)
	}
	if tt.ReadOnly {
		Freeze(out)
	}
	return out, nil
}

// valueLabel renders v compactly for diagnostics.
func valueLabel(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(t)
	case *Object:
		return "object"
	case *List:
		return "array"
	default:
		return fmt.Sprint(t)
	}
}
