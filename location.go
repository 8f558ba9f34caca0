// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape

import "fmt"

// A LineCol describes the line number and column offset of a location in
// source text.
type LineCol struct {
	Line   int // line number, 1-based
	Column int // byte offset of column in line, 0-based
}

func (lc LineCol) String() string { return fmt.Sprintf("%d:%d", lc.Line, lc.Column) }

// isZero reports whether lc is the zero location, meaning the error it is
// attached to did not arise at a specific point in the input.
func (lc LineCol) isZero() bool { return lc.Line == 0 && lc.Column == 0 }
