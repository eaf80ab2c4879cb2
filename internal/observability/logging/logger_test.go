package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONIncludesServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "salesscope-api", "warn", "json")

	logger.Info("dataset_ingested")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("cache_get_failed", "key", "analytics:ds-1:{}")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["service"] != "salesscope-api" || record["msg"] != "cache_get_failed" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "salesscope-worker", "debug", "TEXT").Debug("dataset_event_handled")
	if !strings.Contains(buf.String(), "msg=dataset_event_handled") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got.String() != "INFO" {
		t.Fatalf("parseLevel() = %s", got)
	}
}
