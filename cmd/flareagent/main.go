package main

import (
	"log"
	"time"

	"github.com/Desarso/flareagent"
	"github.com/Desarso/flareagent/models/openrouter"
	"github.com/Desarso/flareagent/sessions"
	"github.com/Desarso/flareagent/stores"
	"github.com/Desarso/flareagent/workers"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := flareagent.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	store, err := stores.NewStore(stores.NewStoreConfig(cfg.DBType, cfg.DBConnection))
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer store.Close()

	client := &workers.Client{
		AccountID: cfg.CloudflareAccountID,
		APIToken:  cfg.CloudflareAPIToken,
		Logger:    log.Default(),
	}
	tools := workers.Tools(client)

	agents := func(modelID string) *flareagent.Agent {
		model := &openrouter.OpenRouter_Model{
			Model:    modelID,
			APIKey:   cfg.OpenRouterAPIKey,
			SiteName: "flareagent",
		}
		agent := flareagent.Create_Agent(model, tools)
		return &agent
	}

	server := sessions.NewServer(agents, store)
	server.DefaultModel = cfg.DefaultModel
	for _, tool := range tools {
		server.ToolNames = append(server.ToolNames, tool.Name)
	}

	startRetentionJob(store, cfg.RetentionDays)

	log.Printf("flareagent listening on :%s (default model %s)", cfg.Port, cfg.DefaultModel)
	if err := server.Router().Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// startRetentionJob prunes old run records once a day.
func startRetentionJob(store stores.RunStore, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	c := cron.New()
	c.AddFunc("@daily", func() {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		pruned, err := store.PruneBefore(cutoff)
		if err != nil {
			log.Printf("Warning: run log prune failed: %v", err)
			return
		}
		if pruned > 0 {
			log.Printf("Pruned %d run records older than %d days", pruned, retentionDays)
		}
	})
	c.Start()
}
