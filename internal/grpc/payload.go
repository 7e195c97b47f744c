package grpc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct renders v through its JSON tags so gRPC and HTTP clients see the same field names.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

// intField reads an optional integer. Absent and null values yield nil.
func intField(req *structpb.Struct, name string) (*int, error) {
	v, ok := req.GetFields()[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		n := int(f)
		return &n, nil
	case *structpb.Value_StringValue:
		s := strings.TrimSpace(k.StringValue)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
		}
		return &n, nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an integer", name)
	}
}

func stringListField(req *structpb.Struct, name string) ([]string, error) {
	v, ok := req.GetFields()[name]
	if !ok || v == nil {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be a list of strings", name)
	}
	out := make([]string, 0, len(list.GetValues()))
	for i, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s[%d] must be a string", name, i)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}
