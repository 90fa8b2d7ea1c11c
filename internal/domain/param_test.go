package domain

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   interface{}
		want Param
	}{
		{name: "nil", in: nil, want: Param{Kind: ParamNull}},
		{name: "bool true", in: true, want: Param{Kind: ParamBool, Bool: true}},
		{name: "bool false", in: false, want: Param{Kind: ParamBool}},
		{name: "integral number", in: json.Number("42"), want: Param{Kind: ParamInt64, Int: 42}},
		{name: "negative integral", in: json.Number("-7"), want: Param{Kind: ParamInt64, Int: -7}},
		{name: "fractional number", in: json.Number("3.5"), want: Param{Kind: ParamFloat64, Float: 3.5}},
		{name: "large float", in: json.Number("1e300"), want: Param{Kind: ParamFloat64, Float: 1e300}},
		{name: "oversized integer keeps digits", in: json.Number("123456789012345678901234567890"),
			want: Param{Kind: ParamString, Str: "123456789012345678901234567890"}},
		{name: "negative oversized integer keeps digits", in: json.Number("-98765432109876543210987654321"),
			want: Param{Kind: ParamString, Str: "-98765432109876543210987654321"}},
		{name: "int64 boundary stays integral", in: json.Number("9223372036854775807"),
			want: Param{Kind: ParamInt64, Int: 9223372036854775807}},
		{name: "one past int64 falls back to string", in: json.Number("9223372036854775808"),
			want: Param{Kind: ParamString, Str: "9223372036854775808"}},
		{name: "out-of-range exponent keeps literal", in: json.Number("1e999"),
			want: Param{Kind: ParamString, Str: "1e999"}},
		{name: "plain float64 integral", in: float64(10), want: Param{Kind: ParamInt64, Int: 10}},
		{name: "plain float64 fractional", in: 2.25, want: Param{Kind: ParamFloat64, Float: 2.25}},
		{name: "int", in: 5, want: Param{Kind: ParamInt64, Int: 5}},
		{name: "string", in: "hello", want: Param{Kind: ParamString, Str: "hello"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapValue(tt.in))
		})
	}
}

func TestMapValueCompositesBecomeJSON(t *testing.T) {
	t.Parallel()

	obj := MapValue(map[string]interface{}{"a": json.Number("1")})
	require.Equal(t, ParamJSON, obj.Kind)
	assert.JSONEq(t, `{"a":1}`, string(obj.JSON))

	arr := MapValue([]interface{}{"x", json.Number("2")})
	require.Equal(t, ParamJSON, arr.Kind)
	assert.JSONEq(t, `["x",2]`, string(arr.JSON))
}

func TestMapValueDecoderRoundTrip(t *testing.T) {
	t.Parallel()

	dec := json.NewDecoder(bytes.NewReader([]byte(
		`{"n":null,"b":true,"i":9007199254740993,"f":1.5,"s":"txt","o":{"k":1},"big":99999999999999999999999999}`)))
	dec.UseNumber()
	var payload map[string]interface{}
	require.NoError(t, dec.Decode(&payload))

	mapped := MapFields(payload)
	assert.Equal(t, ParamNull, mapped["n"].Kind)
	assert.Equal(t, ParamBool, mapped["b"].Kind)
	// 2^53+1 still fits int64 and must not lose precision through float64.
	assert.Equal(t, Param{Kind: ParamInt64, Int: 9007199254740993}, mapped["i"])
	assert.Equal(t, ParamFloat64, mapped["f"].Kind)
	assert.Equal(t, ParamString, mapped["s"].Kind)
	assert.Equal(t, ParamJSON, mapped["o"].Kind)
	assert.Equal(t, Param{Kind: ParamString, Str: "99999999999999999999999999"}, mapped["big"])
}

func TestParamBind(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Param{Kind: ParamNull}.Bind())
	assert.Equal(t, true, Param{Kind: ParamBool, Bool: true}.Bind())
	assert.Equal(t, int64(7), Param{Kind: ParamInt64, Int: 7}.Bind())
	assert.Equal(t, 1.5, Param{Kind: ParamFloat64, Float: 1.5}.Bind())
	assert.Equal(t, "x", Param{Kind: ParamString, Str: "x"}.Bind())
	assert.Equal(t, `{"a":1}`, Param{Kind: ParamJSON, JSON: json.RawMessage(`{"a":1}`)}.Bind())
}

func TestParamMarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    Param
		want string
	}{
		{name: "null", p: Param{Kind: ParamNull}, want: `null`},
		{name: "bool", p: Param{Kind: ParamBool, Bool: true}, want: `true`},
		{name: "int", p: Param{Kind: ParamInt64, Int: -3}, want: `-3`},
		{name: "float", p: Param{Kind: ParamFloat64, Float: 0.5}, want: `0.5`},
		{name: "string", p: Param{Kind: ParamString, Str: "a"}, want: `"a"`},
		{name: "json", p: Param{Kind: ParamJSON, JSON: json.RawMessage(`[1,2]`)}, want: `[1,2]`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tt.p)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
