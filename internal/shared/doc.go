// Package shared holds helpers used across the stock take packages that do not belong
// to any domain layer.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on structured logs
//	- workbook fixture builders backed by excelize
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    path := testutil.WriteWorkbook(t, t.TempDir(), "NAIROBI.xlsx",
//	        testutil.Sheet("Full Cylinders", testutil.Row("QR", "Serial"), testutil.Row("A1", 7)))
//	    ...
//	}
package shared
