// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import (
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

// A state identifies the position of the machine within the grammar of the
// document. Each state consumes one input byte per step.
type state uint8

const (
	stateDocStart state = iota
	stateDocEnd
	stateFirstFieldReady
	stateNonFirstFieldReady
	stateFieldName
	stateEndFieldName
	stateFieldValueReady
	stateStringFieldValue
	stateNonStringFieldValue
	stateStringValue
	stateNonStringValue
	stateFieldEnd
	stateFirstArrayElementReady
	stateNonFirstArrayElementReady
	stateStringArrayElement
	stateNonStringArrayElement
	stateArrayElementEnd
	stateEscape
	stateUnicodeHex
)

// eof is the sentinel passed to step when the input is exhausted.
const eof = -1

// A machine is the working state of a single parse. It is reusable across
// parses via reset, but is not safe for concurrent use.
type machine struct {
	opts     Options
	st       state
	frames   []*frame
	pending  Type   // resolved expected type of the next value; nil skips it
	curField *Field // declared field owning the value in flight, if any
	result   Value

	// While unionDepth is positive the machine is inside a union subtree,
	// building generically; the frame that owns the boundary converts the
	// finished subtree to the union type when it closes.
	unionDepth int

	buf           [1024]byte // read buffer
	lex           []byte     // lexeme accumulator
	hex           [4]byte
	hexLen        int
	highSurrogate rune // pending high surrogate from a \u escape, or 0
	escReturn     state

	line, col int
}

// reset returns m to its initial state, releasing references to any values
// retained from a previous parse.
func (m *machine) reset() {
	m.opts = Options{}
	m.st = stateDocStart
	for i := range m.frames {
		m.frames[i] = nil
	}
	m.frames = m.frames[:0]
	m.pending = nil
	m.curField = nil
	m.result = nil
	m.unionDepth = 0
	m.lex = m.lex[:0]
	m.hexLen = 0
	m.highSurrogate = 0
	m.line, m.col = 1, 0
}

// run parses one complete JSON document from r at expected type t.
func (m *machine) run(r io.Reader, opts Options, t Type) (_ Value, err error) {
	defer m.recoverError(&err)
	m.reset()
	m.opts = opts

	root, rerr := resolveType(t)
	if rerr != nil {
		return nil, rerr
	}
	m.pending = root

	for {
		n, rdErr := r.Read(m.buf[:])
		for _, c := range m.buf[:n] {
			m.advance(c)
			m.step(int(c))
		}
		if rdErr == io.EOF {
			break
		} else if rdErr != nil {
			panic(wrapError(IoFailure, rdErr))
		}
	}
	m.step(eof)
	if m.st != stateDocEnd {
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	}
	return m.result, nil
}

func (m *machine) recoverError(errp *error) {
	switch e := recover().(type) {
	case nil:
	case *Error:
		*errp = e
	default:
		panic(e)
	}
}

// advance updates the input location for one consumed byte. Columns count
// bytes from the start of the line, so errors inside multibyte runes point
// at the offending byte.
func (m *machine) advance(c byte) {
	if c == '\n' {
		m.line++
		m.col = 0
	} else {
		m.col++
	}
}

func (m *machine) loc() LineCol { return LineCol{Line: m.line, Column: m.col} }

// failf aborts the parse with an error at the current input location.
func (m *machine) failf(code Code, format string, args ...any) {
	panic(&Error{Code: code, Location: m.loc(), Message: fmt.Sprintf(format, args...)})
}

// fail aborts the parse with err, stamping the current location on errors
// produced away from the input (such as by conversion).
func (m *machine) fail(err error) {
	if e, ok := err.(*Error); ok {
		if e.Location.isZero() {
			cp := *e
			cp.Location = m.loc()
			panic(&cp)
		}
		panic(e)
	}
	e := wrapError(ConversionFailure, err)
	e.Location = m.loc()
	panic(e)
}

func (m *machine) top() *frame { return m.frames[len(m.frames)-1] }

// resolve is resolveType lifted into the panic-based error flow.
func (m *machine) resolve(t Type) Type {
	rt, err := resolveType(t)
	if err != nil {
		m.fail(err)
	}
	return rt
}

// step consumes one input byte, or the eof sentinel.
func (m *machine) step(ch int) {
	switch m.st {
	case stateDocStart:
		m.stepDocStart(ch)
	case stateDocEnd:
		m.stepDocEnd(ch)
	case stateFirstFieldReady:
		m.stepFieldReady(ch, true)
	case stateNonFirstFieldReady:
		m.stepFieldReady(ch, false)
	case stateFieldName:
		m.stepFieldName(ch)
	case stateEndFieldName:
		m.stepEndFieldName(ch)
	case stateFieldValueReady:
		m.stepFieldValueReady(ch)
	case stateStringFieldValue:
		m.stepString(ch, stateFieldEnd)
	case stateNonStringFieldValue:
		m.stepNonStringFieldValue(ch)
	case stateStringValue:
		m.stepString(ch, stateDocEnd)
	case stateNonStringValue:
		m.stepNonStringValue(ch)
	case stateFieldEnd:
		m.stepFieldEnd(ch)
	case stateFirstArrayElementReady:
		m.stepArrayElementReady(ch, true)
	case stateNonFirstArrayElementReady:
		m.stepArrayElementReady(ch, false)
	case stateStringArrayElement:
		m.stepString(ch, stateArrayElementEnd)
	case stateNonStringArrayElement:
		m.stepNonStringArrayElement(ch)
	case stateArrayElementEnd:
		m.stepArrayElementEnd(ch)
	case stateEscape:
		m.stepEscape(ch)
	case stateUnicodeHex:
		m.stepUnicodeHex(ch)
	}
}

func (m *machine) stepDocStart(ch int) {
	switch {
	case isSpace(ch):
	case ch == '{':
		m.pushContainer(true)
		m.st = stateFirstFieldReady
	case ch == '[':
		m.pushContainer(false)
		m.st = stateFirstArrayElementReady
	case ch == '"':
		m.st = stateStringValue
	case ch == eof:
		m.failf(EmptyDocument, "empty JSON document")
	default:
		m.st = stateNonStringValue
		m.step(ch)
	}
}

func (m *machine) stepDocEnd(ch int) {
	if !isSpace(ch) && ch != eof {
		m.failf(TrailingContent, "input continues after the end of the document")
	}
}

func (m *machine) stepFieldReady(ch int, first bool) {
	switch {
	case isSpace(ch):
	case ch == '"':
		m.st = stateFieldName
	case ch == '}' && first:
		m.closeFrame()
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	case first:
		m.failf(UnexpectedChar, `expected '"' or '}', got %q`, rune(ch))
	default:
		m.failf(UnexpectedChar, `expected '"', got %q`, rune(ch))
	}
}

func (m *machine) stepFieldName(ch int) {
	switch {
	case ch == '"':
		m.handleFieldName(m.takeLexeme())
		m.st = stateEndFieldName
	case ch == '\\':
		m.escReturn = stateFieldName
		m.st = stateEscape
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.appendLex(byte(ch))
	}
}

// handleFieldName resolves the wire name of the member about to be parsed:
// it selects the declared field (or the rest type) and records the output
// name for attach. Inside a union or skip subtree the name passes through.
func (m *machine) handleFieldName(wire string) {
	f := m.top()
	if m.unionDepth > 0 || f.skip {
		if f.skip {
			m.pending = nil
		}
		m.curField = nil
		f.names = append(f.names, wire)
		return
	}
	fld := f.visited[wire]
	if fld == nil {
		if x, ok := f.unvisited[wire]; ok {
			fld = x
			delete(f.unvisited, wire)
		}
	}
	name, ft := wire, Type(nil)
	if fld == nil {
		ft = f.rest
		if ft == nil && !m.opts.AllowProjection {
			m.failf(UndefinedField, "undefined field %q", wire)
		}
	} else {
		f.visited[wire] = fld
		name, ft = fld.Name, fld.Type
	}
	m.curField = fld
	if ft == nil {
		m.pending = nil
	} else {
		m.pending = m.resolve(ft)
	}
	f.names = append(f.names, name)
}

func (m *machine) stepEndFieldName(ch int) {
	switch {
	case isSpace(ch):
	case ch == ':':
		m.st = stateFieldValueReady
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.failf(UnexpectedChar, `expected ':', got %q`, rune(ch))
	}
}

func (m *machine) stepFieldValueReady(ch int) {
	switch {
	case isSpace(ch):
	case ch == '"':
		m.st = stateStringFieldValue
	case ch == '{':
		m.pushContainer(true)
		m.st = stateFirstFieldReady
	case ch == '[':
		m.pushContainer(false)
		m.st = stateFirstArrayElementReady
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.st = stateNonStringFieldValue
		m.step(ch)
	}
}

// stepString is shared by the three quoted-value states; next is the state
// to enter when the closing quotation mark is seen.
func (m *machine) stepString(ch int, next state) {
	switch {
	case ch == '"':
		m.processValue(true)
		m.st = next
	case ch == '\\':
		m.escReturn = m.st
		m.st = stateEscape
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.appendLex(byte(ch))
	}
}

func (m *machine) stepNonStringFieldValue(ch int) {
	switch {
	case ch == ',':
		m.processValue(false)
		m.st = stateNonFirstFieldReady
	case ch == '}':
		m.processValue(false)
		m.closeFrame()
	case isSpace(ch):
		m.processValue(false)
		m.st = stateFieldEnd
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	case ch == '[' || ch == ']' || ch == '{':
		m.failf(UnexpectedChar, "unexpected %q in value", rune(ch))
	default:
		m.appendLex(byte(ch))
	}
}

func (m *machine) stepNonStringValue(ch int) {
	switch {
	case isSpace(ch) || ch == eof:
		m.processValue(false)
		m.st = stateDocEnd
	case ch == '[' || ch == ']' || ch == '{' || ch == '}':
		m.failf(UnexpectedChar, "unexpected %q in value", rune(ch))
	default:
		m.appendLex(byte(ch))
	}
}

func (m *machine) stepFieldEnd(ch int) {
	switch {
	case isSpace(ch):
	case ch == ',':
		m.st = stateNonFirstFieldReady
	case ch == '}':
		m.closeFrame()
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.failf(UnexpectedChar, `expected ',' or '}', got %q`, rune(ch))
	}
}

func (m *machine) stepArrayElementReady(ch int, first bool) {
	switch {
	case isSpace(ch):
	case ch == '"':
		m.setElemPending()
		m.st = stateStringArrayElement
	case ch == '{':
		m.setElemPending()
		m.pushContainer(true)
		m.st = stateFirstFieldReady
	case ch == '[':
		m.setElemPending()
		m.pushContainer(false)
		m.st = stateFirstArrayElementReady
	case ch == ']':
		if !first {
			m.failf(UnexpectedChar, "unexpected ']' after ','")
		}
		m.closeFrame()
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.setElemPending()
		m.st = stateNonStringArrayElement
		m.step(ch)
	}
}

func (m *machine) stepNonStringArrayElement(ch int) {
	switch {
	case ch == ',':
		m.processValue(false)
		m.top().index++
		m.st = stateNonFirstArrayElementReady
	case ch == ']':
		m.processValue(false)
		m.closeFrame()
	case isSpace(ch):
		m.processValue(false)
		m.st = stateArrayElementEnd
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	case ch == '[' || ch == '{' || ch == '}':
		m.failf(UnexpectedChar, "unexpected %q in value", rune(ch))
	default:
		m.appendLex(byte(ch))
	}
}

func (m *machine) stepArrayElementEnd(ch int) {
	switch {
	case isSpace(ch):
	case ch == ',':
		m.top().index++
		m.st = stateNonFirstArrayElementReady
	case ch == ']':
		m.closeFrame()
	case ch == eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.failf(UnexpectedChar, `expected ',' or ']', got %q`, rune(ch))
	}
}

// closeFrame pops the current frame, finalizes its node (missing-field
// checks, union conversion, freezing), and splices the finished value into
// the parent frame or the document result.
func (m *machine) closeFrame() {
	f := m.top()
	m.frames[len(m.frames)-1] = nil
	m.frames = m.frames[:len(m.frames)-1]
	m.curField = nil

	var child Value
	if !f.skip {
		if f.isMap && f.typ != nil && !f.union {
			m.finalizeFields(f)
		}
		child = f.node
		if f.union {
			m.unionDepth--
			out, err := convertValue(child, f.typ, m.opts)
			if err != nil {
				m.fail(err)
			}
			child = out
		} else if f.typ != nil && isReadOnly(f.typ) {
			Freeze(child)
		}
	}

	if len(m.frames) == 0 {
		m.result = child
		m.st = stateDocEnd
		return
	}
	p := m.top()
	if p.isMap {
		name := p.names[len(p.names)-1]
		p.names = p.names[:len(p.names)-1]
		if !f.skip && !p.skip {
			p.node.(*Object).Set(name, child)
		}
		m.st = stateFieldEnd
	} else {
		if !f.skip && !p.skip {
			p.node.(*List).Append(child)
		}
		m.st = stateArrayElementEnd
	}
}

// finalizeFields applies the absence rules to the declared fields the
// document never mentioned, in declaration order.
func (m *machine) finalizeFields(f *frame) {
	rec, ok := f.typ.(*Record)
	if !ok {
		return // map and any frames declare no fields
	}
	obj := f.node.(*Object)
	for _, fld := range rec.Fields {
		if _, absent := f.unvisited[fld.wireKey()]; !absent {
			continue
		}
		if m.opts.AbsentAsNilable && fld.Nilable {
			obj.Set(fld.Name, nil)
			continue
		}
		if fld.Required {
			m.failf(RequiredFieldMissing, "required field %q not present in JSON", fld.Name)
		}
	}
}

func (m *machine) stepEscape(ch int) {
	switch ch {
	case '"', '\\', '/':
		m.appendLex(byte(ch))
	case 'b':
		m.appendLex('\b')
	case 'f':
		m.appendLex('\f')
	case 'n':
		m.appendLex('\n')
	case 'r':
		m.appendLex('\r')
	case 't':
		m.appendLex('\t')
	case 'u':
		m.hexLen = 0
		m.st = stateUnicodeHex
		return
	case eof:
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	default:
		m.failf(BadEscape, "invalid character %q after escape", rune(ch))
	}
	m.st = m.escReturn
}

func (m *machine) stepUnicodeHex(ch int) {
	if ch == eof {
		m.failf(UnexpectedEOF, "unexpected end of JSON document")
	}
	b := byte(ch)
	if !isHexDigit(b) {
		m.failf(BadHexEscape, "expected hexadecimal digit, got %q", rune(ch))
	}
	m.hex[m.hexLen] = b
	m.hexLen++
	if m.hexLen == 4 {
		m.emitCodeUnit(rune(parseHex4(m.hex)))
		m.hexLen = 0
		m.st = m.escReturn
	}
}

// emitCodeUnit appends a decoded \u code unit to the lexeme, pairing UTF-16
// surrogates. An unpaired surrogate becomes U+FFFD.
func (m *machine) emitCodeUnit(r rune) {
	if utf16.IsSurrogate(r) {
		if r < 0xDC00 { // high surrogate: hold for a possible partner
			m.flushSurrogate()
			m.highSurrogate = r
			return
		}
		if hi := m.highSurrogate; hi != 0 {
			m.highSurrogate = 0
			m.appendRune(utf16.DecodeRune(hi, r))
			return
		}
		m.appendRune(utf8.RuneError)
		return
	}
	m.flushSurrogate()
	m.appendRune(r)
}

// flushSurrogate replaces a high surrogate that never found its partner.
func (m *machine) flushSurrogate() {
	if m.highSurrogate != 0 {
		m.highSurrogate = 0
		m.appendRune(utf8.RuneError)
	}
}

func (m *machine) appendRune(r rune) {
	var rbuf [utf8.UTFMax]byte
	n := utf8.EncodeRune(rbuf[:], r)
	m.lex = append(m.lex, rbuf[:n]...)
}

func (m *machine) appendLex(b byte) {
	m.flushSurrogate()
	m.lex = append(m.lex, b)
}

// takeLexeme returns the accumulated lexeme and clears the buffer.
func (m *machine) takeLexeme() string {
	m.flushSurrogate()
	s := string(m.lex)
	m.lex = m.lex[:0]
	return s
}

func isSpace(ch int) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || ('a' <= b && b <= 'f') || ('A' <= b && b <= 'F')
}

func parseHex4(h [4]byte) (v uint32) {
	for _, b := range h {
		v <<= 4
		switch {
		case isDigit(b):
			v |= uint32(b - '0')
		case b >= 'a':
			v |= uint32(b-'a') + 10
		default:
			v |= uint32(b-'A') + 10
		}
	}
	return
}
