package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Intrising/intrising-workspace-monitor/internal/aicli"
	"github.com/Intrising/intrising-workspace-monitor/internal/config"
	github "github.com/Intrising/intrising-workspace-monitor/internal/githubapi"
	"github.com/Intrising/intrising-workspace-monitor/internal/scorer"
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

	srv := scorer.NewServer(scorer.Config{
		Port:          cfg.Port,
		WebhookSecret: cfg.GitHubWebhookSecret,
		Document:      doc,
		Auth:          buildAuth(cfg),
		AICLI: aicli.Config{
			Binary:              cfg.AICLIPath,
			WorkDir:             cfg.AICLIWorkDir,
			BypassRepoCheckFlag: bypassFlag(cfg),
			Timeout:             cfg.AICLITimeout,
		},
		Workers:   cfg.DispatcherWorkers,
		QueueSize: cfg.DispatcherQueueSize,
	}, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[Issue Scorer] starting on :%d", cfg.Port)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("issue-scorer exited: %v", err)
	}
	log.Println("[Issue Scorer] shut down cleanly")
}

func buildAuth(cfg *config.Config) github.AuthProvider {
	if cfg.GitHubToken != "" {
		return &github.TokenAuth{Token: cfg.GitHubToken}
	}
	return &github.AppAuth{AppID: cfg.GitHubAppID, PrivateKey: cfg.GitHubPrivateKey}
}

func bypassFlag(cfg *config.Config) string {
	if cfg.AICLIDisableBypassFlag {
		return ""
	}
	return cfg.AICLIBypassFlag
}
