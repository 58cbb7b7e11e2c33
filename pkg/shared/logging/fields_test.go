package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestFields_Component(t *testing.T) {
	fields := NewFields().Component("sanitizer")

	if fields["component"] != "sanitizer" {
		t.Errorf("Component() = %v, want %v", fields["component"], "sanitizer")
	}
}

func TestFields_Operation(t *testing.T) {
	fields := NewFields().Operation("sanitize")

	if fields["operation"] != "sanitize" {
		t.Errorf("Operation() = %v, want %v", fields["operation"], "sanitize")
	}
}

func TestFields_Resource(t *testing.T) {
	fields := NewFields().Resource("incident", "abc123")

	if fields["resource_type"] != "incident" {
		t.Errorf("Resource() resource_type = %v, want %v", fields["resource_type"], "incident")
	}
	if fields["resource_name"] != "abc123" {
		t.Errorf("Resource() resource_name = %v, want %v", fields["resource_name"], "abc123")
	}
}

func TestFields_ResourceWithoutName(t *testing.T) {
	fields := NewFields().Resource("incident", "")

	if fields["resource_type"] != "incident" {
		t.Errorf("Resource() resource_type = %v, want %v", fields["resource_type"], "incident")
	}
	if _, exists := fields["resource_name"]; exists {
		t.Error("Resource() should not set resource_name when empty")
	}
}

func TestFields_Duration(t *testing.T) {
	duration := 150 * time.Millisecond
	fields := NewFields().Duration(duration)

	if fields["duration_ms"] != int64(150) {
		t.Errorf("Duration() duration_ms = %v, want %v", fields["duration_ms"], int64(150))
	}
}

func TestFields_Error(t *testing.T) {
	fields := NewFields().Error(errors.New("boom"))
	if fields["error"] != "boom" {
		t.Errorf("Error() error = %v, want %v", fields["error"], "boom")
	}

	fields2 := NewFields().Error(nil)
	if _, exists := fields2["error"]; exists {
		t.Error("Error(nil) should not set error field")
	}
}

func TestFields_Chaining(t *testing.T) {
	fields := NewFields().Component("detective").Operation("analyze").IncidentID("inc-1")

	if fields["component"] != "detective" || fields["operation"] != "analyze" || fields["incident_id"] != "inc-1" {
		t.Errorf("chained Fields = %v, missing expected keys", fields)
	}
}
