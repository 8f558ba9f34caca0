// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package jshape_test

import (
	"testing"

	"github.com/creachadair/jshape"
	"github.com/creachadair/mds/mtest"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestConvertScalars(t *testing.T) {
	tests := []struct {
		input jshape.Value
		typ   jshape.Type
		want  string
		code  jshape.Code // zero means success expected
	}{
		{int64(5), tInt, `5`, 0},
		{int64(5), tFloat, `5`, 0},
		{int64(5), tDecimal, `5`, 0},
		{int64(300), tByte, ``, jshape.ConversionFailure},
		{float64(2.5), tFloat, `2.5`, 0},
		{float64(2.5), tDecimal, `2.5`, 0},
		{float64(2.5), tInt, ``, jshape.ConversionFailure},
		{decimal.NewFromInt(7), tDecimal, `7`, 0},
		{decimal.NewFromInt(7), tFloat, `7`, 0},
		{"é", tChar, `"é"`, 0},
		{"ab", tChar, ``, jshape.ConversionFailure},
		{"x", tString, `"x"`, 0},
		{"x", tInt, ``, jshape.ConversionFailure},
		{true, tBool, `true`, 0},
		{true, tInt, ``, jshape.ConversionFailure},
		{nil, tNull, `null`, 0},
		{nil, tInt, ``, jshape.ConversionFailure},
		{nil, jshape.Nilable(tInt), `null`, 0},
		{int64(9), tAny, `9`, 0},
	}
	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			got, err := jshape.Convert(tc.input, jshape.Options{}, tc.typ)
			if tc.code != 0 {
				if err == nil {
					t.Fatalf("Convert %v: got %s, want error", tc.input, jshape.JSONString(got))
				}
				if code := jshape.CodeOf(err); code != tc.code {
					t.Errorf("Convert %v: got code %v, want %v", tc.input, code, tc.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert %v: unexpected error: %v", tc.input, err)
			}
			checkJSON(t, got, tc.want)
		})
	}
}

func TestConvertUnionOrder(t *testing.T) {
	u := &jshape.Union{Members: []jshape.Type{tDecimal, tInt}}
	got, err := jshape.Convert(int64(5), jshape.Options{}, u)
	if err != nil {
		t.Fatalf("Convert: unexpected error: %v", err)
	}
	if _, ok := got.(decimal.Decimal); !ok {
		t.Errorf("Convert: got %T, want decimal.Decimal", got)
	}
}

func TestConvertRecord(t *testing.T) {
	rec := &jshape.Record{Fields: []*jshape.Field{
		{Name: "userId", Key: "user-id", Type: tInt, Required: true},
		{Name: "note", Type: tString},
	}}
	generic := mustParse(t, `{"user-id":7,"note":"hi","extra":true}`, jshape.Options{}, tAny)

	t.Run("Strict", func(t *testing.T) {
		_, err := jshape.Convert(generic, jshape.Options{}, rec)
		if got := jshape.CodeOf(err); got != jshape.UndefinedField {
			t.Errorf("Convert: got code %v, want %v", got, jshape.UndefinedField)
		}
	})
	t.Run("Projected", func(t *testing.T) {
		got, err := jshape.Convert(generic, projOn, rec)
		if err != nil {
			t.Fatalf("Convert: unexpected error: %v", err)
		}
		checkJSON(t, got, `{"userId":7,"note":"hi"}`)
	})
	t.Run("Missing", func(t *testing.T) {
		in := mustParse(t, `{"note":"hi"}`, jshape.Options{}, tAny)
		_, err := jshape.Convert(in, projOn, rec)
		if got := jshape.CodeOf(err); got != jshape.RequiredFieldMissing {
			t.Errorf("Convert: got code %v, want %v", got, jshape.RequiredFieldMissing)
		}
	})
	t.Run("InputUnmodified", func(t *testing.T) {
		if _, err := jshape.Convert(generic, projOn, rec); err != nil {
			t.Fatalf("Convert: unexpected error: %v", err)
		}
		checkJSON(t, generic, `{"user-id":7,"note":"hi","extra":true}`)
	})
}

func TestConvertArrays(t *testing.T) {
	closed := &jshape.Array{Elem: tInt, Size: 2}
	in := mustParse(t, `[1,2,3]`, jshape.Options{}, tAny)

	if _, err := jshape.Convert(in, jshape.Options{}, closed); jshape.CodeOf(err) != jshape.ArrayTooLong {
		t.Errorf("Convert strict: got %v, want %v", jshape.CodeOf(err), jshape.ArrayTooLong)
	}
	got, err := jshape.Convert(in, projOn, closed)
	if err != nil {
		t.Fatalf("Convert projected: unexpected error: %v", err)
	}
	checkJSON(t, got, `[1,2]`)
}

func TestConvertFreezes(t *testing.T) {
	mt := &jshape.Map{Value: tInt, ReadOnly: true}
	in := mustParse(t, `{"x":1}`, jshape.Options{}, tAny)
	got, err := jshape.Convert(in, jshape.Options{}, mt)
	if err != nil {
		t.Fatalf("Convert: unexpected error: %v", err)
	}
	mtest.MustPanic(t, func() { got.(*jshape.Object).Set("y", int64(2)) })

	// The original remains mutable.
	in.(*jshape.Object).Set("y", int64(2))
}

// Parsing at type T agrees with parsing generically and converting to T.
func TestConvertAgreesWithParse(t *testing.T) {
	rec := &jshape.Record{Fields: []*jshape.Field{
		{Name: "id", Key: "ID", Type: tInt, Required: true},
		{Name: "vals", Type: &jshape.Array{Elem: tFloat, Size: -1}},
		{Name: "tag", Type: jshape.Nilable(tString), Nilable: true},
	}}
	tests := []struct {
		input string
		typ   jshape.Type
	}{
		{`{"ID":3,"vals":[1,2.5],"tag":null}`, rec},
		{`{"ID":3,"vals":[],"extra":{"deep":[true]}}`, rec},
		{`[[1,"a"],[2,"b"]]`, &jshape.Array{
			Elem: &jshape.Tuple{Elems: []jshape.Type{tInt, tString}}, Size: -1}},
		{`{"m":{"k":"v"}}`, &jshape.Map{Value: &jshape.Map{Value: tString}}},
		{`"solo"`, &jshape.Union{Members: []jshape.Type{tInt, tString}}},
	}
	for _, tc := range tests {
		t.Run("", func(t *testing.T) {
			direct, err := jshape.ParseString(tc.input, projOn, tc.typ)
			if err != nil {
				t.Fatalf("Parse direct: unexpected error: %v", err)
			}
			generic := mustParse(t, tc.input, jshape.Options{}, tAny)
			conv, err := jshape.Convert(generic, projOn, tc.typ)
			if err != nil {
				t.Fatalf("Convert: unexpected error: %v", err)
			}
			if diff := cmp.Diff(jshape.JSONString(direct), jshape.JSONString(conv)); diff != "" {
				t.Errorf("Results differ (-parse, +convert):\n%s", diff)
			}
		})
	}
}
