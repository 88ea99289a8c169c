package extract

import (
	"testing"
)

const validPayload = `{
	"confidence": 0.91,
	"fields": [
		{
			"field_name": "inspection_date",
			"field_value": "2026-02-14",
			"confidence_score": 0.93,
			"bounding_box": {"page": 1, "left": 0.1, "top": 0.2, "width": 0.3, "height": 0.05}
		},
		{
			"field_name": "inspector_name",
			"field_value": "J. Novak",
			"confidence_score": 0.88,
			"bounding_box": {"page": 2, "left": 0.15, "top": 0.4, "width": 0.25, "height": 0.04}
		}
	]
}`

func TestParseResultValid(t *testing.T) {
	result, err := ParseResult([]byte(validPayload))
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if result.Confidence != 0.91 {
		t.Fatalf("confidence = %v, want 0.91", result.Confidence)
	}
	if len(result.Fields) != 2 {
		t.Fatalf("fields = %d, want 2", len(result.Fields))
	}
	field := result.Fields[0]
	if field.FieldName != "inspection_date" || field.FieldValue != "2026-02-14" {
		t.Fatalf("unexpected field %+v", field)
	}
	if field.BoundingBox.Page != 1 || field.BoundingBox.Width != 0.3 {
		t.Fatalf("unexpected bounding box %+v", field.BoundingBox)
	}
}

func TestParseResultEmptyFields(t *testing.T) {
	result, err := ParseResult([]byte(`{"confidence": 0.5, "fields": []}`))
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if len(result.Fields) != 0 {
		t.Fatalf("fields = %d, want none", len(result.Fields))
	}
}

func TestParseResultRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"confidence": 0.9,`},
		{"missing confidence", `{"fields": []}`},
		{"missing fields", `{"confidence": 0.9}`},
		{"confidence above one", `{"confidence": 1.5, "fields": []}`},
		{"field missing name", `{"confidence": 0.9, "fields": [
			{"field_value": "x", "confidence_score": 0.5,
			 "bounding_box": {"page": 1, "left": 0, "top": 0, "width": 1, "height": 1}}]}`},
		{"empty field name", `{"confidence": 0.9, "fields": [
			{"field_name": "", "field_value": "x", "confidence_score": 0.5,
			 "bounding_box": {"page": 1, "left": 0, "top": 0, "width": 1, "height": 1}}]}`},
		{"field missing bounding box", `{"confidence": 0.9, "fields": [
			{"field_name": "total", "field_value": "x", "confidence_score": 0.5}]}`},
		{"bounding box missing page", `{"confidence": 0.9, "fields": [
			{"field_name": "total", "field_value": "x", "confidence_score": 0.5,
			 "bounding_box": {"left": 0, "top": 0, "width": 1, "height": 1}}]}`},
		{"page below one", `{"confidence": 0.9, "fields": [
			{"field_name": "total", "field_value": "x", "confidence_score": 0.5,
			 "bounding_box": {"page": 0, "left": 0, "top": 0, "width": 1, "height": 1}}]}`},
		{"numeric field value", `{"confidence": 0.9, "fields": [
			{"field_name": "total", "field_value": 42, "confidence_score": 0.5,
			 "bounding_box": {"page": 1, "left": 0, "top": 0, "width": 1, "height": 1}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseResult([]byte(tc.payload)); err == nil {
				t.Fatalf("ParseResult accepted %s", tc.name)
			}
		})
	}
}
