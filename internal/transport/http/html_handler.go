package http

import (
	"html/template"
	"log/slog"
	"net/http"

	"stocktake/pkg/contracts"
)

var uploadPage = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Stocktake Duplicates Check</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        fieldset { margin: 10px 0; padding: 10px; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>Stocktake Duplicates Check</h1>
    <form action="{{.Action}}" method="post" enctype="multipart/form-data">
        <fieldset>
            <legend>Upload Depot Stock Take Excel files</legend>
            <input type="file" name="{{.Field}}" accept=".xlsx" multiple required>
        </fieldset>
        <fieldset>
            <legend>Output</legend>
            <select name="format" onchange="this.form.action='{{.Action}}?format='+this.value">
                <option value="json">JSON summary</option>
                <option value="xlsx">XLSX report</option>
            </select>
        </fieldset>
        <button type="submit">Check duplicates</button>
    </form>
    <p><small>{{.Version}}</small></p>
</body>
</html>
`))

// ServeUploadPage serves the workbook upload form
func ServeUploadPage(action string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	data := struct {
		Action  string
		Field   string
		Version string
	}{
		Action:  action,
		Field:   UploadField,
		Version: contracts.GetVersionString(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		if err := uploadPage.Execute(w, data); err != nil {
			logger.ErrorContext(r.Context(), "Failed to render upload page", slog.String("error", err.Error()))
		}
	}
}
