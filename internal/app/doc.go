// Package app wires the stock take web service: configuration, logging,
// OpenTelemetry, the pipeline processor and the chi router.
//
// Middleware order is RequestID, RealIP, Tracing, StructuredLogger,
// Recoverer, SecurityHeaders. The upload endpoint sits behind the rate limiter;
// health, version and metrics do not.
//
//	a, err := app.NewApplication(app.Options{})
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
//
// Run stops on SIGINT or SIGTERM and shuts the server down within
// Server.ShutdownTimeout.
package app
