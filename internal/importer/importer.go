// Package importer pulls recipient addresses out of uploaded spreadsheets.
//
// A workbook is parsed into named sheets; each sheet is scanned twice, once
// as header-keyed records and once as a raw grid, so files with and without
// a usable header row are both covered. Every email-shaped substring is
// normalized, re-validated and classified as new, duplicate or invalid.
package importer

import (
	"log/slog"

	"github.com/shineum/mailform/internal/notice"
)

// Result is the classification produced by one import.
type Result struct {
	// New holds addresses absent from the recipient list, in discovery order.
	New []string `json:"new"`
	// Duplicates holds each already-listed address once.
	Duplicates []string `json:"duplicates"`
	// Invalid holds the original text of candidates that failed validation.
	Invalid []string `json:"invalid"`
}

// NothingFound reports whether the import produced neither new nor
// duplicate addresses.
func (r *Result) NothingFound() bool {
	return len(r.New) == 0 && len(r.Duplicates) == 0
}

// Summary condenses the result into a single notice.
func (r *Result) Summary() notice.Notice {
	if r.NothingFound() {
		return notice.Info("No email addresses found in the file")
	}
	return notice.Success("Import complete: %d added, %d already in list, %d invalid",
		len(r.New), len(r.Duplicates), len(r.Invalid))
}

// Import parses data, classifies its addresses against existing and calls
// add once for every new address in discovery order. When the file cannot
// be parsed, add is never called and the error wraps ErrUnreadableWorkbook.
func Import(name string, data []byte, existing []string, add func(email string)) (*Result, error) {
	wb, err := Parse(name, data)
	if err != nil {
		slog.Warn("spreadsheet import failed", "file", name, "error", err)
		return nil, err
	}

	res := Scan(wb, existing)
	for _, addr := range res.New {
		add(addr)
	}

	slog.Info("spreadsheet imported",
		"file", name,
		"sheets", len(wb.Sheets),
		"new", len(res.New),
		"duplicates", len(res.Duplicates),
		"invalid", len(res.Invalid),
	)
	return res, nil
}
