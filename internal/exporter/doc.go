// Package exporter renders stock take results for download.
//
// Tables turns a result into four tables: the unified dataset, the depot by
// status pivot, the duplicate list and the duplicate pivot. Each can be written
// as CSV, with a UTF-8 BOM for Excel, or all together as one XLSX report.
//
// Example usage:
//
//	exp := exporter.NewExporter(cfg.Export, logger)
//	paths, err := exp.Export(ctx, result, exporter.FormatBoth)
//
//	// or stream a single table
//	t, _ := exporter.TableByName(result, exporter.TablePivot)
//	err = exporter.EncodeTable(w, t, true)
package exporter
