package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	"github.com/Intrising/intrising-workspace-monitor/internal/gateway"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	doc, err := config.LoadDocument(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config document: %v", err)
	}

	srv := gateway.NewServer(gateway.Config{
		Port:           cfg.Port,
		WebhookSecret:  cfg.GitHubWebhookSecret,
		WebUsername:    cfg.WebUsername,
		WebPassword:    cfg.WebPassword,
		PRReviewerURL:  cfg.PRReviewerURL,
		IssueCopierURL: cfg.IssueCopierURL,
		IssueScorerURL: cfg.IssueScorerURL,
		Document:       doc,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[Gateway] starting on :%d", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("gateway exited: %v", err)
	}
	log.Println("[Gateway] shut down cleanly")
}
