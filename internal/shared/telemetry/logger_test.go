package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteEmitsJSONLine(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Error("analysis.stage", map[string]any{
		"stage": "risks",
		"err":   errors.New("boom"),
		"msg":   "ignored",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if entry["level"] != "error" || entry["msg"] != "analysis.stage" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", entry["err"])
	}
	if entry["stage"] != "risks" {
		t.Fatalf("expected stage field, got %v", entry["stage"])
	}
}
