// Package app wires the ETL inspector service together and manages its
// lifecycle.
//
// # Initialization Flow
//
// New builds everything from a loaded config.Config:
//
//  1. Resolve and create the data, uploads, exports and logs directories
//  2. Initialize logging and OpenTelemetry
//  3. Open the report store, then the optional Redis cache and NATS publisher
//  4. Build the analysis, health and export services
//  5. Create the WebSocket hub, status broadcaster and job queue
//  6. Set up middleware and routes
//
// Nothing listens and no worker runs until Start (or StartBackground in
// tests, which then drive Router directly).
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests, cancels
// running jobs, closes WebSocket clients, then closes the store, cache,
// event bus and telemetry exporters.
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
