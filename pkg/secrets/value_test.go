package secrets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Type
		wantErr bool
	}{
		{
			name:  "str",
			input: "str",
			want:  TypeString,
		},
		{
			name:  "int",
			input: "int",
			want:  TypeInt,
		},
		{
			name:  "empty_defaults_to_str",
			input: "",
			want:  TypeString,
		},
		{
			name:    "unknown_type_rejected",
			input:   "float",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueGet(t *testing.T) {
	v := NewValue("s3cr3t", TypeString)
	assert.Equal(t, "s3cr3t", v.Get())
	assert.Equal(t, TypeString, v.Type())
}

func TestValueCast(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		typ     Type
		want    any
		wantErr bool
	}{
		{
			name: "string_passthrough",
			raw:  "hello",
			typ:  TypeString,
			want: "hello",
		},
		{
			name: "int_parses",
			raw:  "5432",
			typ:  TypeInt,
			want: 5432,
		},
		{
			name: "negative_int_parses",
			raw:  "-7",
			typ:  TypeInt,
			want: -7,
		},
		{
			name:    "non_numeric_int_fails",
			raw:     "abc",
			typ:     TypeInt,
			wantErr: true,
		},
		{
			name: "leading_zeros_kept_as_string",
			raw:  "00123",
			typ:  TypeString,
			want: "00123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewValue(tt.raw, tt.typ).Cast()
			if tt.wantErr {
				var castErr TypeCastError
				require.ErrorAs(t, err, &castErr)
				assert.Equal(t, tt.raw, castErr.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueEquals(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		typ       Type
		candidate string
		want      bool
		wantErr   bool
	}{
		{
			name:      "string_exact_match",
			raw:       "hunter2",
			typ:       TypeString,
			candidate: "hunter2",
			want:      true,
		},
		{
			name:      "string_mismatch",
			raw:       "hunter2",
			typ:       TypeString,
			candidate: "hunter3",
			want:      false,
		},
		{
			name:      "int_numeric_comparison",
			raw:       "5432",
			typ:       TypeInt,
			candidate: "05432",
			want:      true,
		},
		{
			name:      "int_mismatch",
			raw:       "5432",
			typ:       TypeInt,
			candidate: "5433",
			want:      false,
		},
		{
			name:      "int_candidate_not_numeric",
			raw:       "5432",
			typ:       TypeInt,
			candidate: "not-a-number",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewValue(tt.raw, tt.typ).Equals(tt.candidate)
			if tt.wantErr {
				var castErr TypeCastError
				require.ErrorAs(t, err, &castErr)
				assert.Equal(t, tt.candidate, castErr.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValueMasking(t *testing.T) {
	v := NewValue("super-secret", TypeString)

	assert.Equal(t, Mask, v.String())
	assert.Equal(t, Mask, v.GoString())
	assert.Equal(t, Mask, fmt.Sprintf("%v", v))
	assert.Equal(t, Mask, fmt.Sprintf("%s", v))
	assert.Equal(t, Mask, fmt.Sprintf("%#v", v))
	assert.NotContains(t, fmt.Sprintf("%v %s %#v", v, v, v), "super-secret")
}

func TestTypeCastErrorMessage(t *testing.T) {
	err := TypeCastError{Value: "abc"}
	assert.Equal(t, `value "abc" is not a valid int`, err.Error())
}

func TestDuplicatePathErrorMessage(t *testing.T) {
	err := DuplicatePathError{Path: "db.password"}
	assert.Equal(t, "duplicate secret path: db.password", err.Error())

	var dup DuplicatePathError
	assert.True(t, errors.As(err, &dup))
}
