// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import (
	"io"
	"strings"
	"sync"
)

var pool = sync.Pool{New: func() any { return NewParser() }}

// Parse reads a single JSON document from r and returns its value shaped by
// the expected type t. Errors have concrete type *Error.
//
// Parse draws on a shared pool of parser state, so callers that parse many
// documents pay for the working buffers only once. For explicit control of
// reuse, construct a Parser.
func Parse(r io.Reader, opts Options, t Type) (Value, error) {
	p := pool.Get().(*Parser)
	defer func() { p.Reset(); pool.Put(p) }()
	return p.Parse(r, opts, t)
}

// ParseString is shorthand for Parse on a string.
func ParseString(s string, opts Options, t Type) (Value, error) {
	return Parse(strings.NewReader(s), opts, t)
}

// A Parser parses JSON documents directed by an expected type. The zero
// value is ready for use. A Parser may be reused for any number of parses,
// amortizing its internal buffers, but is not safe for concurrent use.
type Parser struct {
	m machine
}

// NewParser constructs a new, empty Parser.
func NewParser() *Parser { return new(Parser) }

// Parse reads a single JSON document from r and returns its value shaped by
// the expected type t. Errors have concrete type *Error.
func (p *Parser) Parse(r io.Reader, opts Options, t Type) (Value, error) {
	opts = opts.normalize()
	v, err := p.m.run(r, opts, t)
	if err != nil {
		return nil, err
	}
	if opts.ValidateConstraints && opts.Validator != nil {
		return opts.Validator.Validate(v, t)
	}
	return v, nil
}

// Reset restores p to its initial state, releasing references to values
// retained from a previous parse. Parse resets p itself before reading, so
// an explicit Reset is needed only to release those references early.
func (p *Parser) Reset() { p.m.reset() }
