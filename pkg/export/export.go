// Package export serializes appointment day plans for hand-off to
// planning spreadsheets and downstream tooling.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"github.com/medrota/dispatch/core/scheduler"
)

// WriteJSON writes the day plan to w in JSON format.
func WriteJSON(w io.Writer, entries []scheduler.Entry) error {
	enc := json.NewEncoder(w)
	return enc.Encode(entries)
}

// WriteCSV writes the day plan to w in CSV format.
func WriteCSV(w io.Writer, entries []scheduler.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"slot", "request_id", "category", "priority"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Slot.Format(time.RFC3339),
			e.RequestID,
			string(e.Category),
			string(e.Priority),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
