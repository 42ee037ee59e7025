package google

import (
	"fmt"
	"strings"

	"sysfinance/internal/core"
)

// exportSheetName returns the tab holding one user's period, e.g.
// "Export 2024-03 #7".
func exportSheetName(base string, userID int64, year, month int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Export"
	}
	return fmt.Sprintf("%s %04d-%02d #%d", base, year, month, userID)
}

// exportValues converts rows into the value matrix written to the sheet,
// header first.
func exportValues(rows []core.ExportRow) [][]any {
	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAny(core.ExportHeader))
	for _, r := range rows {
		values = append(values, toAny(r.Values()))
	}
	return values
}

// valuesRange is the A1 range covering a matrix of the given size.
func valuesRange(sheet string, rows, cols int) string {
	if rows < 1 {
		rows = 1
	}
	return fmt.Sprintf("'%s'!A1:%s%d", sheet, columnLetter(cols), rows)
}

func columnLetter(n int) string {
	if n < 1 {
		n = 1
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func hasSheet(titles []string, name string) bool {
	for _, t := range titles {
		if strings.EqualFold(strings.TrimSpace(t), name) {
			return true
		}
	}
	return false
}
