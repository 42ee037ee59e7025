// Package sheets declares the spreadsheet export ports.
package sheets

import (
	"context"

	"sysfinance/internal/core"
)

// Ports for outbound adapters.
type (
	// RowExporter writes one user's monthly export rows to a spreadsheet.
	// Exporting the same period again replaces the previous rows.
	RowExporter interface {
		ExportRows(ctx context.Context, userID int64, year, month int, rows []core.ExportRow) (ref string, err error)
	}
)
