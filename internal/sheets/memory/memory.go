// Package memory is an in-process RowExporter used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"sysfinance/internal/core"
	ports "sysfinance/internal/sheets"
)

var _ ports.RowExporter = (*Exporter)(nil)

type Exporter struct {
	mu     sync.Mutex
	sheets map[string][]core.ExportRow
	writes int
}

func New() *Exporter {
	return &Exporter{sheets: make(map[string][]core.ExportRow)}
}

// ExportRows replaces the stored rows of the period and returns a synthetic
// reference.
func (e *Exporter) ExportRows(_ context.Context, userID int64, year, month int, rows []core.ExportRow) (string, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return "", err
	}
	key := sheetKey(userID, year, month)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[key] = append([]core.ExportRow(nil), rows...)
	e.writes++
	return "mem:" + key, nil
}

// Rows returns a copy of what was last exported for the period.
func (e *Exporter) Rows(userID int64, year, month int) []core.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.ExportRow(nil), e.sheets[sheetKey(userID, year, month)]...)
}

// Writes counts ExportRows calls that succeeded.
func (e *Exporter) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}

func sheetKey(userID int64, year, month int) string {
	return fmt.Sprintf("%d/%04d-%02d", userID, year, month)
}
