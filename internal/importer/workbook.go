package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadableWorkbook is returned when an upload cannot be parsed as any
// supported spreadsheet format.
var ErrUnreadableWorkbook = errors.New("the file could not be read as a spreadsheet")

// Sheet is one named grid of cell text. Rows may be ragged.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is a parsed spreadsheet file.
type Workbook struct {
	Sheets []Sheet
}

type format int

const (
	formatCSV format = iota
	formatXLSX
	formatXLS
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// allowedExtensions are the file types offered by the upload picker.
var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// AllowedExtension reports whether name carries one of the accepted
// spreadsheet extensions.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Parse reads data as a workbook. The content signature wins over the file
// extension, so a mislabelled xlsx is still read correctly.
func Parse(name string, data []byte) (wb *Workbook, err error) {
	// The legacy xls reader panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableWorkbook, r)
		}
	}()

	switch detectFormat(name, data) {
	case formatXLSX:
		wb, err = parseXLSX(data)
	case formatXLS:
		wb, err = parseXLS(data)
	default:
		wb, err = parseCSV(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return wb, nil
}

func detectFormat(name string, data []byte) format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return formatXLSX
	case bytes.HasPrefix(data, ole2Magic):
		return formatXLS
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return formatXLSX
	case ".xls":
		return formatXLS
	default:
		return formatCSV
	}
}

func parseXLSX(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			// An unreadable sheet contributes nothing; the others still count.
			rows = nil
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: name, Rows: rows})
	}
	return wb, nil
}

func parseXLS(data []byte) (*Workbook, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}

	wb := &Workbook{}
	for i := 0; i < book.NumSheets(); i++ {
		sheet := book.GetSheet(i)
		if sheet == nil {
			continue
		}

		rows := make([][]string, 0, int(sheet.MaxRow)+1)
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells[c] = row.Col(c)
			}
			rows = append(rows, cells)
		}
		wb.Sheets = append(wb.Sheets, Sheet{Name: sheet.Name, Rows: rows})
	}
	return wb, nil
}

func parseCSV(data []byte) (*Workbook, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Workbook{Sheets: []Sheet{{Name: "Sheet1", Rows: rows}}}, nil
}
