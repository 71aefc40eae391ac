// Package normalize turns the nested wire values returned by the dialogue service
// into plain JSON-compatible structures built from map[string]any, []any and scalars.
package normalize

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var marshalOptions = protojson.MarshalOptions{UseProtoNames: true}

// Value returns a copy of v that only contains plain maps, slices and scalars.
// Plain inputs are returned deep-equal to themselves. Service responses are trees,
// so no cycle detection is done.
func Value(v any) any {
	switch tv := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if tv == nil {
			return tv
		}
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = Value(e)
		}
		return out
	case []any:
		if tv == nil {
			return tv
		}
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = Value(e)
		}
		return out
	case *structpb.Struct:
		if tv == nil {
			return map[string]any{}
		}
		out := make(map[string]any, len(tv.GetFields()))
		for k, f := range tv.GetFields() {
			out[k] = Value(f)
		}
		return out
	case *structpb.ListValue:
		if tv == nil {
			return []any{}
		}
		out := make([]any, len(tv.GetValues()))
		for i, e := range tv.GetValues() {
			out[i] = Value(e)
		}
		return out
	case *structpb.Value:
		return fromStructValue(tv)
	case proto.Message:
		return fromMessage(tv)
	}

	rv := reflect.ValueOf(v)
	//nolint:exhaustive
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = Value(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		// []byte is a scalar for our purposes
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	default:
		return v
	}
}

// Map normalizes v and returns it as a map. Non-map results yield an empty map.
func Map(v any) map[string]any {
	if m, ok := Value(v).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func fromStructValue(v *structpb.Value) any {
	if v == nil {
		return nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil
	case *structpb.Value_NumberValue:
		return k.NumberValue
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_BoolValue:
		return k.BoolValue
	case *structpb.Value_StructValue:
		return Value(k.StructValue)
	case *structpb.Value_ListValue:
		return Value(k.ListValue)
	default:
		return nil
	}
}

func fromMessage(m proto.Message) any {
	b, err := marshalOptions.Marshal(m)
	if err != nil {
		log.Debug().Err(err).Str("type", fmt.Sprintf("%T", m)).Msg("could not marshal proto message, passing through")
		return m
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		log.Debug().Err(err).Str("type", fmt.Sprintf("%T", m)).Msg("could not decode proto json, passing through")
		return m
	}
	return out
}
