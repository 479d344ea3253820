package events

import (
	"reflect"
	"testing"
	"time"
)

func TestValidatePassesForRegisteredType(t *testing.T) {
	reg := DefaultSchemaRegistry()
	res := reg.Validate("workout.created", map[string]any{
		"workout_id":       "123",
		"title":            "Yoga",
		"created_by":       "u1",
		"duration_minutes": 30,
	})
	if !res.SchemaFound {
		t.Fatalf("schema should be registered")
	}
	if !res.OK() {
		t.Fatalf("expected pass, got violations: %v", res.Violations)
	}
}

func TestValidateAggregatesViolationsDeterministically(t *testing.T) {
	reg := DefaultSchemaRegistry()
	data := map[string]any{
		"workout_id": 42,   // wrong type
		"created_by": "u1", // ok
		// title missing
	}

	first := reg.Validate("workout.created", data)
	if first.OK() {
		t.Fatalf("expected violations")
	}
	want := []string{
		`field "workout_id" is not a string`,
		`missing required field "title"`,
	}
	if !reflect.DeepEqual(first.Violations, want) {
		t.Fatalf("violations = %v, want %v", first.Violations, want)
	}

	// Repeated validation yields the identical report.
	second := reg.Validate("workout.created", data)
	if !reflect.DeepEqual(first.Violations, second.Violations) {
		t.Fatalf("validation is not deterministic: %v vs %v", first.Violations, second.Violations)
	}
}

func TestValidateOptionalFields(t *testing.T) {
	reg := DefaultSchemaRegistry()

	// Absent optional fields pass.
	res := reg.Validate("workout.created", map[string]any{
		"workout_id": "123",
		"title":      "Yoga",
		"created_by": "u1",
	})
	if !res.OK() {
		t.Fatalf("expected pass, got %v", res.Violations)
	}

	// Present optional fields are type-checked.
	res = reg.Validate("workout.created", map[string]any{
		"workout_id":       "123",
		"title":            "Yoga",
		"created_by":       "u1",
		"duration_minutes": "thirty",
	})
	if res.OK() {
		t.Fatalf("expected a type violation for duration_minutes")
	}
}

func TestValidateUnregisteredTypeAlwaysPasses(t *testing.T) {
	reg := DefaultSchemaRegistry()
	for _, data := range []map[string]any{
		nil,
		{},
		{"whatever": []any{1, 2, 3}},
	} {
		res := reg.Validate("custom.event", data)
		if res.SchemaFound {
			t.Fatalf("custom.event should not be registered")
		}
		if !res.OK() {
			t.Fatalf("open-world policy violated: %v", res.Violations)
		}
	}
}

func TestMatchesType(t *testing.T) {
	cases := []struct {
		value any
		typ   FieldType
		want  bool
	}{
		{"s", FieldString, true},
		{1, FieldString, false},
		{1, FieldNumber, true},
		{int64(2), FieldNumber, true},
		{1.5, FieldNumber, true},
		{"1", FieldNumber, false},
		{true, FieldBool, true},
		{map[string]any{"k": "v"}, FieldMapping, true},
		{[]any{"a"}, FieldList, true},
		{[]string{"a"}, FieldList, true},
		{"a", FieldList, false},
		{time.Now(), FieldTimestamp, true},
		{"2025-01-02T15:04:05Z", FieldTimestamp, true},
		{"not a time", FieldTimestamp, false},
	}
	for _, tc := range cases {
		if got := matchesType(tc.value, tc.typ); got != tc.want {
			t.Fatalf("matchesType(%#v, %s) = %v, want %v", tc.value, tc.typ, got, tc.want)
		}
	}
}

func TestRegisterIgnoresEmptyType(t *testing.T) {
	reg := NewSchemaRegistry()
	reg.Register("  ", Schema{})
	if got := len(reg.Types()); got != 0 {
		t.Fatalf("registry should be empty, has %d entries", got)
	}
}

func TestDefaultSchemaRegistryCoversCatalogue(t *testing.T) {
	reg := DefaultSchemaRegistry()
	types := reg.Types()
	idx := make(map[string]bool, len(types))
	for _, typ := range types {
		idx[typ] = true
	}
	for _, want := range []string{
		"workout.created", "workout.updated", "workout.deleted",
		"booking.created", "booking.confirmed", "booking.cancelled",
		"membership.created", "membership.expired",
		"payment.completed", "payment.failed",
		"class.created", "class.updated", "class.scheduled", "class.cancelled",
	} {
		if !idx[want] {
			t.Fatalf("catalogue missing %s", want)
		}
	}
}

func TestParseFieldType(t *testing.T) {
	if typ, err := parseFieldType(" Timestamp "); err != nil || typ != FieldTimestamp {
		t.Fatalf("parseFieldType = %v, %v", typ, err)
	}
	if _, err := parseFieldType("datetime"); err == nil {
		t.Fatalf("expected error for unknown field type")
	}
}
