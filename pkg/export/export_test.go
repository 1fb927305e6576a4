package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/scheduler"
)

func TestWriteCSV(t *testing.T) {
	slot := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	entries := []scheduler.Entry{
		{Slot: slot, RequestID: "r1", Category: model.CategoryAdvanced, Priority: model.PriorityHigh},
		{Slot: slot.Add(time.Hour), RequestID: "r2", Category: model.CategoryBasic, Priority: model.PriorityLow},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, entries); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows", len(lines))
	}
	if lines[1] != "2026-09-14T09:00:00Z,r1,advanced,high" {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "null" {
		t.Fatalf("empty plan = %q", buf.String())
	}
}
