// Package operations runs analyses in the background.
//
// A JobQueue owns a fixed pool of workers fed from a bounded channel.
// Each job is tracked in a JobStore and every state change is pushed
// through the StatusBroadcaster, which serialises updates and forwards
// them to the WebSocket hub as job:update messages.
//
// Lifecycle:
//
//	queued -> running -> completed
//	                  -> failed
//	                  -> cancelled
//
// A queued job that is cancelled never starts. A running job is cancelled
// through its context; the analysis notices at its next check boundary.
package operations
