package schema

import (
	"strings"
	"testing"
)

type testFrame struct {
	Event     string `validate:"required,oneof=start media stop"`
	StreamSid string `validate:"required"`
}

func TestValidator_Valid(t *testing.T) {
	v := New()
	if err := v.Validate(testFrame{Event: "start", StreamSid: "MZ123"}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidator_ReportsEveryField(t *testing.T) {
	v := New()
	err := v.Validate(testFrame{Event: "dtmf"})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "testFrame.Event") || !strings.Contains(msg, `"oneof"`) {
		t.Errorf("expected Event oneof failure in %q", msg)
	}
	if !strings.Contains(msg, "testFrame.StreamSid") || !strings.Contains(msg, `"required"`) {
		t.Errorf("expected StreamSid required failure in %q", msg)
	}
}

func TestValidator_NonStruct(t *testing.T) {
	v := New()
	if err := v.Validate("not a struct"); err == nil {
		t.Error("expected error for non-struct input")
	}
}
