// Package services implements the business logic of ETL Inspector. It sits
// between the transports (HTTP handlers, the job queue, the CLI) and the
// lower layers that read files, run checks and persist reports.
//
// # Analysis pipeline
//
// AnalysisService.Analyze runs one request end to end:
//
//	validate -> ingest -> fingerprint -> cache lookup -> detect
//	  -> suggestions -> history store -> cache store -> bus event
//
// Every step reports into the request span and the business metrics. The
// cache, store and bus are optional; the service falls back to a Noop
// cache, an in-memory history and a Noop publisher when they are not
// configured.
//
// # Error Handling
//
// Services return sentinel errors that the HTTP layer maps to problem
// documents:
//
//   - ErrInvalidRequest for requests missing a source
//   - ErrReportNotFound for unknown report IDs
//   - ErrJobNotFound for unknown job IDs
//
// Errors from the lower layers (validation, ingest, detector) are wrapped
// with %w so their own sentinels still match.
//
// # Testing
//
// Dependencies are interfaces and are mocked with testify/mock:
//
//	store := new(mockStore)
//	store.On("Create", mock.Anything, mock.Anything).Return(nil)
//	svc := NewAnalysisService(AnalysisDeps{Store: store})
package services
