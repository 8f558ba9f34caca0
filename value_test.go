// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape_test

import (
	"testing"

	"github.com/creachadair/jshape"
	"github.com/creachadair/mds/mtest"
	"github.com/shopspring/decimal"
)

func TestObjectBasic(t *testing.T) {
	obj := jshape.NewObject()
	if obj.Len() != 0 {
		t.Errorf("Len: got %d, want 0", obj.Len())
	}
	obj.Set("a", int64(1))
	obj.Set("b", "two")
	obj.Set("a", int64(3)) // replaces, does not duplicate

	if obj.Len() != 2 {
		t.Errorf("Len: got %d, want 2", obj.Len())
	}
	if m := obj.Find("a"); m == nil {
		t.Error(`Find "a": not found`)
	} else if m.Value != int64(3) {
		t.Errorf(`Find "a": got %v, want 3`, m.Value)
	}
	if m := obj.Find("nonesuch"); m != nil {
		t.Errorf(`Find "nonesuch": got %+v, want nil`, m)
	}
	checkJSON(t, obj, `{"a":3,"b":"two"}`)
}

func TestFreeze(t *testing.T) {
	obj := jshape.NewObject()
	lst := jshape.NewList(0)
	lst.Append(int64(1))
	obj.Set("inner", lst)

	jshape.Freeze(obj)
	if !obj.IsFrozen() {
		t.Error("Object is not frozen")
	}
	if !lst.IsFrozen() {
		t.Error("Inner list is not frozen")
	}
	mtest.MustPanic(t, func() { obj.Set("x", nil) })
	mtest.MustPanic(t, func() { lst.Append(nil) })
}

func TestJSONString(t *testing.T) {
	tests := []struct {
		input jshape.Value
		want  string
	}{
		{nil, `null`},
		{true, `true`},
		{int64(-15), `-15`},
		{float64(2.5), `2.5`},
		{float64(1e21), `1e+21`},
		{mustDecimal(t, "0.1"), `0.1`},
		{"plain", `"plain"`},
		{"tab\there", `"tab\there"`},
		{"\x01", "\"\\u0001\""},
		{"\u2028\u2029", "\"\\u2028\\u2029\""},
		{`say "what"`, `"say \"what\""`},
		{"emoji 😀", `"emoji 😀"`},
	}
	for _, tc := range tests {
		if got := jshape.JSONString(tc.input); got != tc.want {
			t.Errorf("JSONString %#v: got %#q, want %#q", tc.input, got, tc.want)
		}
	}

	t.Run("Nested", func(t *testing.T) {
		lst := jshape.NewList(0)
		lst.Append(nil)
		inner := jshape.NewObject()
		inner.Set("k", "v")
		lst.Append(inner)
		lst.Append(jshape.NewList(0))
		checkJSON(t, lst, `[null,{"k":"v"},[]]`)
	})
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("NewFromString %q: %v", s, err)
	}
	return d
}
