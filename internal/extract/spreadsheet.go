package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// oleMagic opens every OLE2 compound file, which is how legacy BIFF .xls
// workbooks are stored.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

type sheetRows struct {
	name string
	rows [][]string
}

// extractSpreadsheet writes every sheet under a "=== Sheet: <name> ===" label
// with non-blank rows tab-joined. OOXML workbooks go through excelize and
// BIFF .xls through extrame/xls; both render identically.
func extractSpreadsheet(doc Document, res *Result) error {
	method, read := "excelize", readXLSX
	if bytes.HasPrefix(doc.Data, oleMagic) {
		method, read = "xls", readXLS
	}
	sheets, err := read(doc.Data, res)
	if err != nil {
		return err
	}
	if len(sheets) == 0 {
		return fmt.Errorf("workbook has no readable sheets")
	}
	res.Method = method
	res.Text = renderSheets(sheets, res)
	return nil
}

func readXLSX(data []byte, res *Result) ([]sheetRows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []sheetRows
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		out = append(out, sheetRows{name: sheet, rows: rows})
	}
	return out, nil
}

// readXLS reads a BIFF workbook. The parser panics on some malformed
// records, so a panic is reported as an unreadable workbook.
func readXLS(data []byte, _ *Result) (out []sheetRows, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("read xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("open xls workbook: no workbook stream")
	}

	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := sheetRows{name: ws.Name}
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				continue
			}
			// LastCol may be one past the last cell; joinRow trims the blank
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			sheet.rows = append(sheet.rows, cells)
		}
		out = append(out, sheet)
	}
	return out, nil
}

func renderSheets(sheets []sheetRows, res *Result) string {
	var b strings.Builder
	for _, s := range sheets {
		res.Sheets = append(res.Sheets, s.name)
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Sheet: %s ===\n", s.name)
		for _, row := range s.rows {
			if line := joinRow(row); line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinRow(row []string) string {
	cells := make([]string, len(row))
	blank := true
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			blank = false
		}
	}
	if blank {
		return ""
	}
	// trailing empties add nothing
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return strings.Join(cells[:end], "\t")
}
