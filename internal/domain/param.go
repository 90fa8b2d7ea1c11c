package domain

import (
	"encoding/json"
	"strings"
)

// ParamKind enumerates the closed set of shapes a bound parameter can take.
type ParamKind int

const (
	ParamNull ParamKind = iota
	ParamBool
	ParamInt64
	ParamFloat64
	ParamString
	ParamJSON
)

// Param is a typed query parameter: one of null, bool, int64, float64,
// string, or an opaque JSON blob. It is the only value shape the query
// builder will bind into a statement.
type Param struct {
	Kind  ParamKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	JSON  json.RawMessage
}

// Bind returns the driver-compatible value for this parameter.
// JSON parameters are bound as their serialized text, which SQLite stores
// verbatim and its json functions consume natively.
func (p Param) Bind() interface{} {
	switch p.Kind {
	case ParamBool:
		return p.Bool
	case ParamInt64:
		return p.Int
	case ParamFloat64:
		return p.Float
	case ParamString:
		return p.Str
	case ParamJSON:
		return string(p.JSON)
	default:
		return nil
	}
}

// MarshalJSON re-serializes the parameter to the JSON literal it was
// mapped from (oversized numbers come back as strings).
func (p Param) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamBool:
		return json.Marshal(p.Bool)
	case ParamInt64:
		return json.Marshal(p.Int)
	case ParamFloat64:
		return json.Marshal(p.Float)
	case ParamString:
		return json.Marshal(p.Str)
	case ParamJSON:
		return p.JSON, nil
	default:
		return []byte("null"), nil
	}
}

// MapValue converts a decoded JSON value into a typed parameter. It is
// total: every input shape has a defined mapping and no error case.
//
//	null                 -> ParamNull
//	bool                 -> ParamBool
//	integral number      -> ParamInt64
//	non-integral number  -> ParamFloat64
//	oversized number     -> ParamString (literal digits preserved)
//	string               -> ParamString
//	array / object       -> ParamJSON
//
// Numbers should be decoded with json.Decoder.UseNumber so that integer
// precision and oversized literals survive; plain float64 inputs are
// accepted as well. No coercion against the column's declared type happens
// here: mismatches surface as execution errors, not mapper errors.
func MapValue(v interface{}) Param {
	switch val := v.(type) {
	case nil:
		return Param{Kind: ParamNull}
	case bool:
		return Param{Kind: ParamBool, Bool: val}
	case json.Number:
		return mapNumber(val)
	case float64:
		if val == float64(int64(val)) {
			return Param{Kind: ParamInt64, Int: int64(val)}
		}
		return Param{Kind: ParamFloat64, Float: val}
	case int:
		return Param{Kind: ParamInt64, Int: int64(val)}
	case int64:
		return Param{Kind: ParamInt64, Int: val}
	case string:
		return Param{Kind: ParamString, Str: val}
	default:
		// Arrays and objects pass through as an opaque JSON blob.
		raw, err := json.Marshal(val)
		if err != nil {
			// Marshal of decoded JSON values cannot fail; keep the
			// mapping total regardless.
			return Param{Kind: ParamNull}
		}
		return Param{Kind: ParamJSON, JSON: raw}
	}
}

func mapNumber(n json.Number) Param {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		// Integral literal. Float64 would accept it lossily, so an
		// out-of-range int64 goes straight to the string fallback to keep
		// the digits intact.
		if i, err := n.Int64(); err == nil {
			return Param{Kind: ParamInt64, Int: i}
		}
		return Param{Kind: ParamString, Str: s}
	}
	if f, err := n.Float64(); err == nil {
		return Param{Kind: ParamFloat64, Float: f}
	}
	// Out of float64 range as well: only the literal preserves the value.
	return Param{Kind: ParamString, Str: s}
}

// MapFields converts an untyped payload map into typed parameters.
func MapFields(fields map[string]interface{}) map[string]Param {
	out := make(map[string]Param, len(fields))
	for k, v := range fields {
		out[k] = MapValue(v)
	}
	return out
}
