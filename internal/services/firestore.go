package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/desertthunder/reelx/internal/models"
	"github.com/desertthunder/reelx/internal/shared"
)

// firestoreDocument is the REST representation of a Firestore document.
type firestoreDocument struct {
	Name   string                    `json:"name,omitempty"`
	Fields map[string]firestoreValue `json:"fields"`
}

// firestoreValue is a tagged union; exactly one field is set.
type firestoreValue struct {
	NullValue      *string              `json:"nullValue,omitempty"`
	BooleanValue   *bool                `json:"booleanValue,omitempty"`
	IntegerValue   *string              `json:"integerValue,omitempty"`
	DoubleValue    *float64             `json:"doubleValue,omitempty"`
	TimestampValue *string              `json:"timestampValue,omitempty"`
	StringValue    *string              `json:"stringValue,omitempty"`
	ArrayValue     *firestoreArrayValue `json:"arrayValue,omitempty"`
	MapValue       *firestoreMapValue   `json:"mapValue,omitempty"`
}

type firestoreArrayValue struct {
	Values []firestoreValue `json:"values,omitempty"`
}

type firestoreMapValue struct {
	Fields map[string]firestoreValue `json:"fields,omitempty"`
}

// encodeDocument converts a [models.UserDocument] to Firestore fields.
// createdAt is written as a timestamp, everything else follows its JSON shape.
func encodeDocument(doc models.UserDocument) (map[string]firestoreValue, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	fields := make(map[string]firestoreValue, len(generic))
	for k, v := range generic {
		fields[k] = toFirestore(v)
	}

	if ts, ok := generic["createdAt"].(string); ok {
		fields["createdAt"] = firestoreValue{TimestampValue: &ts}
	}
	return fields, nil
}

// decodeDocument converts Firestore fields back to a [models.UserDocument].
func decodeDocument(fields map[string]firestoreValue) (models.UserDocument, error) {
	generic := make(map[string]any, len(fields))
	for k, v := range fields {
		generic[k] = fromFirestore(v)
	}

	data, err := json.Marshal(generic)
	if err != nil {
		return models.UserDocument{}, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	var doc models.UserDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.UserDocument{}, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}
	doc.Collections = doc.Collections.Normalize()
	return doc, nil
}

func toFirestore(v any) firestoreValue {
	switch t := v.(type) {
	case nil:
		null := "NULL_VALUE"
		return firestoreValue{NullValue: &null}
	case bool:
		return firestoreValue{BooleanValue: &t}
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			s := strconv.FormatInt(int64(t), 10)
			return firestoreValue{IntegerValue: &s}
		}
		return firestoreValue{DoubleValue: &t}
	case string:
		return firestoreValue{StringValue: &t}
	case []any:
		values := make([]firestoreValue, len(t))
		for i, item := range t {
			values[i] = toFirestore(item)
		}
		return firestoreValue{ArrayValue: &firestoreArrayValue{Values: values}}
	case map[string]any:
		fields := make(map[string]firestoreValue, len(t))
		for k, item := range t {
			fields[k] = toFirestore(item)
		}
		return firestoreValue{MapValue: &firestoreMapValue{Fields: fields}}
	default:
		s := fmt.Sprint(t)
		return firestoreValue{StringValue: &s}
	}
}

func fromFirestore(v firestoreValue) any {
	switch {
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.IntegerValue != nil:
		n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.TimestampValue != nil:
		return *v.TimestampValue
	case v.StringValue != nil:
		return *v.StringValue
	case v.ArrayValue != nil:
		out := make([]any, len(v.ArrayValue.Values))
		for i, item := range v.ArrayValue.Values {
			out[i] = fromFirestore(item)
		}
		return out
	case v.MapValue != nil:
		out := make(map[string]any, len(v.MapValue.Fields))
		for k, item := range v.MapValue.Fields {
			out[k] = fromFirestore(item)
		}
		return out
	default:
		return nil
	}
}
