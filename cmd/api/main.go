package main

import (
	"log"

	"lexease-backend/internal/bootstrap"
	"lexease-backend/internal/shared/config"
	"lexease-backend/internal/shared/server"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting LexEase API on %s (env=%s, llm=%s)", addr, cfg.Env, cfg.LLMProvider)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
