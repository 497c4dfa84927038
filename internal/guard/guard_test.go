package guard

import (
	"errors"
	"testing"
)

func TestNotMissing(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty", input: "", wantErr: true},
		{name: "spaces", input: "   ", wantErr: true},
		{name: "tabs and newlines", input: "\t\n", wantErr: true},
		{name: "value", input: "contact:1", wantErr: false},
		{name: "padded value", input: "  key  ", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotMissing(tt.input, "key")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNotNil(t *testing.T) {
	type record struct{ Name string }

	var nilPtr *record
	var nilMap map[string]int
	var nilSlice []int

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "untyped nil", value: nil, wantErr: true},
		{name: "typed nil pointer", value: nilPtr, wantErr: true},
		{name: "nil map", value: nilMap, wantErr: true},
		{name: "nil slice", value: nilSlice, wantErr: true},
		{name: "struct value", value: record{}, wantErr: false},
		{name: "zero int", value: 0, wantErr: false},
		{name: "empty string", value: "", wantErr: false},
		{name: "pointer", value: &record{Name: "x"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotNil(tt.value, "value")
			if tt.wantErr != (err != nil) {
				t.Fatalf("NotNil(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}
