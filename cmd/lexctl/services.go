package main

import (
	"context"
	"fmt"

	"lexease-backend/internal/bootstrap"
	"lexease-backend/internal/extract"
	"lexease-backend/internal/mcpserver"
	"lexease-backend/internal/shared/config"
)

// services is the subset of the application the CLI drives directly.
type services struct {
	Extractor interface {
		Extract(ctx context.Context, data []byte, mimeType, fileName string) (extract.Result, error)
	}
	Analyzer mcpserver.Analyzer
	QA       mcpserver.Answerer
	Drafter  mcpserver.Drafter
	Close    func() error
}

type loader func() (*services, error)

// loadServices builds the full application from the environment. Without
// DATABASE_URL in dev it runs on in-memory repositories.
func loadServices() (*services, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &services{
		Extractor: app.Extractor,
		Analyzer:  app.AnalysesService,
		QA:        app.QAService,
		Drafter:   app.DraftingService,
		Close:     app.Close,
	}, nil
}
