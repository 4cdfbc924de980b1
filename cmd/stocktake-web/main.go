package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"stocktake/internal/app"
)

func main() {
	archive := flag.Bool("archive", false, "keep uploaded workbooks under data/uploads")
	flag.Parse()

	application, err := app.NewApplication(app.Options{ArchiveUploads: *archive})
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
