package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewFormatter(t *testing.T) {
	if _, err := NewFormatter(FormatText); err != nil {
		t.Errorf("Expected text formatter, got error: %v", err)
	}
	if _, err := NewFormatter(FormatJSON); err != nil {
		t.Errorf("Expected json formatter, got error: %v", err)
	}
	if _, err := NewFormatter(""); err != nil {
		t.Errorf("Expected empty format to default to text, got error: %v", err)
	}
	if _, err := NewFormatter("yaml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestJSONFormatter_FormatTo(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	data := map[string]interface{}{
		"key":       "agents:per_exec:exec-42",
		"remaining": 60.0,
	}

	var buf bytes.Buffer
	if err := formatter.FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded["remaining"] != 60.0 {
		t.Errorf("Expected remaining 60, got %v", decoded["remaining"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("Expected indented output")
	}
}

func TestTextFormatter_FormatTo(t *testing.T) {
	formatter := &TextFormatter{}

	var buf bytes.Buffer
	if err := formatter.FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo failed: %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("Expected %q, got %q", "hello\n", buf.String())
	}
}
