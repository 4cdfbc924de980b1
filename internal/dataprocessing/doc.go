// Package dataprocessing implements the stock take pipeline: it reads depot
// workbooks, normalizes every sheet into fragments, derives status, depot and
// canonical code per record, and aggregates the merged dataset into pivots and
// duplicate lists.
//
// # Data Flow
//
//	Source → LoadWorkbook → RawSheet → Normalize → Fragment → Enrich → Aggregate → Result
//
// Enrich applies the three pure derivations:
//
//	ClassifySheet("Half Cylinders")             // Not Ready
//	ResolveDepot("scans/NAIROBI.xlsx")          // NAIROBI
//	CanonicalizeCode(TextCell("https://x/a1"))  // A1
//
// # Usage
//
//	p := dataprocessing.NewProcessor(cfg.Pipeline, dataprocessing.WithLogger(logger))
//	result, err := p.Run(ctx, []dataprocessing.Source{
//	    dataprocessing.FileSource("NAIROBI.xlsx"),
//	    dataprocessing.FileSource("MOMBASA.xlsx"),
//	})
//
// # Error Handling
//
// A workbook that cannot be read produces an INGEST error and a sheet without
// columns a SCHEMA error. Both are collected in Result.Diagnostics and the run
// carries on with the remaining input, unless the pipeline is configured to fail
// fast. When nothing could be loaded, Result.Warnings carries an EMPTY_INPUT
// warning and no tables are built.
package dataprocessing
