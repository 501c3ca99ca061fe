package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	"github.com/Intrising/intrising-workspace-monitor/internal/copier"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/taskstore"
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

	store, err := taskstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open task store: %v", err)
	}
	defer store.Close()

	srv := copier.NewServer(copier.Config{
		Port:          cfg.Port,
		WebhookSecret: cfg.GitHubWebhookSecret,
		Document:      doc,
		Auth:          buildAuth(cfg),
		Workers:       cfg.DispatcherWorkers,
		QueueSize:     cfg.DispatcherQueueSize,
	}, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[Issue Copier] starting on :%d", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("issue-copier exited: %v", err)
	}
	log.Println("[Issue Copier] shut down cleanly")
}

func buildAuth(cfg *config.Config) github.AuthProvider {
	if cfg.GitHubToken != "" {
		return &github.TokenAuth{Token: cfg.GitHubToken}
	}
	return &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey}
}
