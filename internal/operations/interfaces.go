package operations

import (
	"context"

	"etlinspector/internal/services"
	"etlinspector/pkg/contracts/domain"
)

// WebSocketHub receives job updates for connected clients.
type WebSocketHub interface {
	BroadcastJSON(v interface{}) error
}

// Analyzer runs one analysis. *services.AnalysisService satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req services.AnalyzeRequest) (domain.Report, error)
}
