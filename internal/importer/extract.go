package importer

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shineum/mailform/internal/recipient"
)

// candidatePattern finds email-shaped substrings inside free cell text.
// It is looser than recipient.Valid; every match is re-validated.
var candidatePattern = regexp.MustCompile(`[\w.%+-]+@[\w.-]+\.[A-Za-z]{2,}`)

var errNoHeader = errors.New("sheet has no header row")

// field is one value of a header-keyed record, kept in column order.
type field struct {
	Key   string
	Value string
}

// records interprets rows[0] as the header and returns every following
// row as an ordered list of non-empty fields.
func records(rows [][]string) ([][]field, error) {
	if len(rows) == 0 {
		return nil, errNoHeader
	}

	header := rows[0]
	out := make([][]field, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var rec []field
		for c, v := range row {
			if v == "" {
				continue
			}
			rec = append(rec, field{Key: columnKey(header, c), Value: v})
		}
		out = append(out, rec)
	}
	return out, nil
}

func columnKey(header []string, c int) string {
	if c < len(header) {
		if k := strings.TrimSpace(header[c]); k != "" {
			return k
		}
	}
	return fmt.Sprintf("__EMPTY_%d", c)
}

// scanner accumulates one import's classification across sheets and passes.
// Keys are normalized addresses, so a cell visited by both passes counts once.
type scanner struct {
	existing map[string]struct{}
	added    map[string]struct{}
	dups     map[string]struct{}
	invalid  map[string]struct{}
	result   *Result
}

func newScanner(existing []string) *scanner {
	s := &scanner{
		existing: make(map[string]struct{}, len(existing)),
		added:    make(map[string]struct{}),
		dups:     make(map[string]struct{}),
		invalid:  make(map[string]struct{}),
		result:   &Result{},
	}
	for _, e := range existing {
		s.existing[e] = struct{}{}
	}
	return s
}

// Scan walks every sheet of wb and classifies the addresses it contains
// against the existing recipient list. It does not mutate anything.
func Scan(wb *Workbook, existing []string) *Result {
	s := newScanner(existing)
	for _, sheet := range wb.Sheets {
		s.runPass(sheet.Name, "records", func() error { return s.recordPass(sheet.Rows) })
		s.runPass(sheet.Name, "grid", func() error { return s.gridPass(sheet.Rows) })
	}
	return s.result
}

// runPass isolates a single pass so that a sheet one strategy cannot read
// still gets scanned by the other.
func (s *scanner) runPass(sheet, pass string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("extraction pass aborted", "sheet", sheet, "pass", pass, "panic", r)
		}
	}()

	if err := fn(); err != nil {
		slog.Debug("extraction pass skipped", "sheet", sheet, "pass", pass, "error", err)
	}
}

func (s *scanner) recordPass(rows [][]string) error {
	recs, err := records(rows)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		for _, f := range rec {
			s.visit(f.Value)
		}
	}
	return nil
}

// gridPass visits every cell. A column in which some cell holds an address
// is an address column. Below its header, a cell without an address is
// reported as invalid when it is a single token that looks like an attempt
// at one: it contains '@' or '.', or the column is headed as an email column.
func (s *scanner) gridPass(rows [][]string) error {
	addressCols := make(map[int]bool)
	for _, row := range rows {
		for c, v := range row {
			if candidatePattern.MatchString(v) {
				addressCols[c] = true
			}
		}
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}

	for r, row := range rows {
		for c, v := range row {
			if s.visit(v) > 0 || r == 0 || !addressCols[c] {
				continue
			}
			if text := strings.TrimSpace(v); looksLikeAddress(text, emailHeader(header, c)) {
				s.markInvalid(text)
			}
		}
	}
	return nil
}

// emailHeader reports whether column c is headed by an email label or, for
// headerless lists, by an address.
func emailHeader(header []string, c int) bool {
	if c >= len(header) {
		return false
	}
	h := strings.TrimSpace(header[c])
	return strings.Contains(strings.ToLower(h), "mail") || candidatePattern.MatchString(h)
}

func looksLikeAddress(text string, emailColumn bool) bool {
	if len(strings.Fields(text)) != 1 {
		return false
	}
	return emailColumn || strings.ContainsAny(text, "@.")
}

// visit extracts and classifies every candidate in cell, returning the
// number of candidates found.
func (s *scanner) visit(cell string) int {
	matches := candidatePattern.FindAllString(cell, -1)
	for _, m := range matches {
		s.classify(m)
	}
	return len(matches)
}

func (s *scanner) classify(match string) {
	addr := strings.ToLower(strings.TrimSpace(match))
	if !recipient.Valid(addr) {
		s.markInvalid(match)
		return
	}

	if _, ok := s.existing[addr]; ok {
		if _, seen := s.dups[addr]; !seen {
			s.dups[addr] = struct{}{}
			s.result.Duplicates = append(s.result.Duplicates, addr)
		}
		return
	}

	if _, seen := s.added[addr]; !seen {
		s.added[addr] = struct{}{}
		s.result.New = append(s.result.New, addr)
	}
}

func (s *scanner) markInvalid(text string) {
	if _, seen := s.invalid[text]; seen {
		return
	}
	s.invalid[text] = struct{}{}
	s.result.Invalid = append(s.result.Invalid, text)
}
