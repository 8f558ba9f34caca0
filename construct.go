// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// A frame is one entry of the parser context stack, representing an object
// or array whose value is under construction.
type frame struct {
	isMap bool
	skip  bool  // consume the subtree without building anything (projection)
	union bool  // the frame owns a union boundary; convert its node on close
	node  Value // *Object or *List; nil when skip is true
	typ   Type  // resolved container type; nil when skip or generic

	// Object frames.
	unvisited map[string]*Field // declared fields not yet consumed, by wire key
	visited   map[string]*Field // declared fields already consumed, by wire key
	rest      Type              // type of undeclared keys, or nil to forbid them
	names     []string          // names of members whose values are in flight

	// Array frames.
	tuple *Tuple // per-index element types, or nil for arrays
	elem  Type   // uniform element type for arrays
	index int
	size  int // closed size; negative when open
}

// pushContainer begins a new object (isMap) or array frame for the pending
// expected type. Inside a union subtree the frame is generic; a nil pending
// type produces a skip frame that consumes its subtree without building.
func (m *machine) pushContainer(isMap bool) {
	f := &frame{isMap: isMap, size: -1}
	switch {
	case m.unionDepth > 0:
		f.node = newContainer(isMap)
	case m.pending == nil:
		f.skip = true
	default:
		t := m.pending
		switch v := t.(type) {
		case *Record:
			m.checkShape(isMap, true, t)
			f.node, f.typ = NewObject(), t
			f.unvisited, f.visited = v.fieldMap(), make(map[string]*Field)
			f.rest = v.Rest
		case *Map:
			m.checkShape(isMap, true, t)
			f.node, f.typ = NewObject(), t
			f.rest = v.Value
		case Any:
			f.node, f.typ = newContainer(isMap), t
			if isMap {
				f.rest = Any{}
			} else {
				f.elem = Any{}
			}
		case *Union:
			f.node, f.typ = newContainer(isMap), t
			f.union = true
			m.unionDepth++
		case *Array:
			m.checkShape(isMap, false, t)
			f.node, f.typ = NewList(sizeHint(v.Size)), t
			f.elem, f.size = v.Elem, v.Size
		case *Tuple:
			m.checkShape(isMap, false, t)
			f.node, f.typ = NewList(len(v.Elems)), t
			f.tuple, f.size = v, len(v.Elems)
		default:
			m.failf(ConversionFailure, "cannot parse %s as %s", shapeLabel(isMap), t.typeLabel())
		}
	}
	m.pending = nil
	m.curField = nil
	m.frames = append(m.frames, f)
}

func newContainer(isMap bool) Value {
	if isMap {
		return NewObject()
	}
	return NewList(0)
}

// sizeHint clamps a declared array size to a safe allocation hint, so a
// large declared size cannot force a large allocation before any element
// has been seen.
func sizeHint(size int) int {
	const maxHint = 1024
	if size < 0 || size > maxHint {
		return 0
	}
	return size
}

func shapeLabel(isMap bool) string {
	if isMap {
		return "object"
	}
	return "array"
}

func (m *machine) checkShape(gotMap, wantMap bool, t Type) {
	if gotMap != wantMap {
		m.failf(ConversionFailure, "cannot parse %s as %s", shapeLabel(gotMap), t.typeLabel())
	}
}

// setElemPending establishes the expected type of the next array element of
// the current frame, enforcing the closed-size bound: in strict mode an
// element beyond the bound fails ArrayTooLong, under projection its subtree
// is skipped.
func (m *machine) setElemPending() {
	f := m.top()
	m.curField = nil
	if m.unionDepth > 0 {
		return
	}
	if f.skip {
		m.pending = nil
		return
	}
	if f.tuple != nil {
		if f.index < len(f.tuple.Elems) {
			m.pending = m.resolve(f.tuple.Elems[f.index])
		} else if m.opts.AllowProjection {
			m.pending = nil
		} else {
			m.failf(ArrayTooLong, "array size exceeds the declared length %d", len(f.tuple.Elems))
		}
		return
	}
	if f.size >= 0 && f.index >= f.size {
		if m.opts.AllowProjection {
			m.pending = nil
		} else {
			m.failf(ArrayTooLong, "array size exceeds the declared length %d", f.size)
		}
		return
	}
	m.pending = m.resolve(f.elem)
}

// attach places a completed value into the current frame, or records it as
// the document result if no frame is open. For object frames the member name
// on top of the name stack is consumed.
func (m *machine) attach(v Value) {
	if len(m.frames) == 0 {
		m.result = v
		return
	}
	f := m.top()
	if f.isMap {
		name := f.names[len(f.names)-1]
		f.names = f.names[:len(f.names)-1]
		if !f.skip {
			f.node.(*Object).Set(name, v)
		}
	} else if !f.skip {
		f.node.(*List).Append(v)
	}
}

// discardName drops the in-flight member name of the current object frame,
// used when a value is skipped under projection.
func (m *machine) discardName() {
	if len(m.frames) == 0 {
		return
	}
	if f := m.top(); f.isMap && len(f.names) > 0 {
		f.names = f.names[:len(f.names)-1]
	}
}

// processValue consumes the lexeme buffer as a completed scalar value.
// Inside a union subtree the scalar is inferred generically; otherwise it is
// coerced to the pending expected type, or dropped if the value is being
// skipped under projection.
func (m *machine) processValue(quoted bool) {
	lex := m.takeLexeme()
	if m.unionDepth > 0 {
		m.attach(m.inferScalar(lex, quoted))
		return
	}
	t := m.pending
	m.pending = nil
	if t == nil {
		m.discardName()
		m.curField = nil
		return
	}
	if !quoted && lex == "null" {
		m.attachNull(t)
	} else {
		m.attach(m.coerce(lex, t, quoted))
	}
	m.curField = nil
}

// attachNull handles an explicit null. A nilable expected type or field
// accepts it; an optional field under NilAsOptional drops the member.
func (m *machine) attachNull(t Type) {
	if isNilableType(t) {
		m.attach(nil)
		return
	}
	if fld := m.curField; fld != nil {
		if fld.Nilable {
			m.attach(nil)
			return
		}
		if !fld.Required && m.opts.NilAsOptional {
			m.discardName()
			return
		}
	}
	m.failf(ConversionFailure, "cannot convert null to %s", t.typeLabel())
}

// coerce converts a scalar lexeme to the expected type t, which must be
// resolved and non-nil. Union expected types are inferred generically and
// routed through the union converter.
func (m *machine) coerce(lex string, t Type, quoted bool) Value {
	switch t := t.(type) {
	case Scalar:
		return m.coerceKind(lex, t.Kind, quoted)
	case Any:
		return m.inferScalar(lex, quoted)
	case *Union:
		out, err := convertValue(m.inferScalar(lex, quoted), t, m.opts)
		if err != nil {
			m.fail(err)
		}
		return out
	default:
		m.failf(ConversionFailure, "cannot convert %s to %s", lexLabel(lex, quoted), t.typeLabel())
		panic("unreachable")
	}
}

func (m *machine) coerceKind(lex string, k Kind, quoted bool) Value {
	switch k {
	case String:
		if quoted {
			return lex
		}
	case Char:
		if quoted {
			if utf8.RuneCountInString(lex) != 1 {
				m.failf(ConversionFailure, "char value %q must be a single character", lex)
			}
			return lex
		}
	case Bool:
		if !quoted && (lex == "true" || lex == "false") {
			return lex == "true"
		}
	case Int, Int8, Int16, Int32, Byte, Uint16, Uint32:
		if !quoted && isNumberLexeme(lex) {
			n, err := strconv.ParseInt(lex, 10, 64)
			if err != nil {
				m.failf(ConversionFailure, "cannot convert %s to %s", lex, k)
			}
			if lo, hi := kindRange(k); n < lo || n > hi {
				m.failf(ConversionFailure, "value %d out of range for %s", n, k)
			}
			return n
		}
	case Float:
		if !quoted && isNumberLexeme(lex) {
			fv, err := strconv.ParseFloat(lex, 64)
			if err != nil {
				m.failf(ConversionFailure, "cannot convert %s to %s", lex, k)
			}
			return fv
		}
	case Decimal:
		if !quoted && isNumberLexeme(lex) {
			d, err := decimal.NewFromString(lex)
			if err != nil {
				m.failf(ConversionFailure, "cannot convert %s to %s", lex, k)
			}
			return d
		}
	case Null:
		// An unquoted null lexeme is handled before coercion; anything else
		// cannot be null.
	}
	m.failf(ConversionFailure, "cannot convert %s to %s", lexLabel(lex, quoted), k)
	panic("unreachable")
}

// inferScalar converts a scalar lexeme with no type direction, as for the
// Any type: quoted lexemes are strings, integer lexemes are int64, and
// fractional or exponent lexemes are float64.
func (m *machine) inferScalar(lex string, quoted bool) Value {
	if quoted {
		return lex
	}
	switch lex {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if isNumberLexeme(lex) {
		if n, err := strconv.ParseInt(lex, 10, 64); err == nil {
			return n
		}
		if fv, err := strconv.ParseFloat(lex, 64); err == nil {
			return fv
		}
	}
	m.failf(ConversionFailure, "invalid value %q", lex)
	panic("unreachable")
}

// isNumberLexeme reports whether s is plausibly a JSON number, ruling out
// the spellings strconv accepts but JSON does not (hex, inf, NaN).
func isNumberLexeme(s string) bool {
	if s == "" || (s[0] != '-' && !isDigit(s[0])) {
		return false
	}
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case isDigit(c):
		case c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-':
		default:
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func lexLabel(lex string, quoted bool) string {
	if quoted {
		return strconv.Quote(lex)
	}
	return lex
}

// kindRange reports the inclusive bounds of an integer kind.
func kindRange(k Kind) (lo, hi int64) {
	switch k {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Byte:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	default:
		return math.MinInt64, math.MaxInt64
	}
}
