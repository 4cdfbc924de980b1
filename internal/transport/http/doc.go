// Package http implements the HTTP handlers of the stock take web service.
//
// Handlers stay thin: they parse the upload, hand the workbooks to a
// StocktakeRunner and render the result. Errors are turned into RFC 7807
// problem details by the shared apierrors.ErrorHandler.
//
// Routes, as mounted by internal/app:
//
//	GET  /                 upload form
//	POST /api/stocktake    multipart field "files"; ?format=json|csv|xlsx
//	                       ?table=dataset|pivot|duplicates|duplicates_pivot (csv)
//	                       ?preview=N (json, default 5)
//	GET  /api/health
//	GET  /api/version
//	GET  /metrics
package http
