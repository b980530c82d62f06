// Package sheets defines the outbound port for the shared-spreadsheet
// mirror and its Google implementation.
package sheets

import (
	"context"

	"gastos/internal/core"
)

// RecordMirror receives movements for the shared spreadsheet.
type RecordMirror interface {
	// AppendRecord writes one movement row and returns a sheet reference.
	AppendRecord(ctx context.Context, r core.Record) (rowRef string, err error)
}
