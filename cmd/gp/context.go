package main

import (
	"context"
	"fmt"
	"log"

	"github.com/goalpost/goalpost/internal/config"
	"github.com/goalpost/goalpost/internal/db"
	"github.com/goalpost/goalpost/internal/lease"
	"github.com/goalpost/goalpost/internal/llm"
	"github.com/goalpost/goalpost/internal/notify"
	"github.com/goalpost/goalpost/internal/notify/discord"
	"github.com/goalpost/goalpost/internal/notify/slack"
	"github.com/goalpost/goalpost/internal/reconcile"
	"github.com/goalpost/goalpost/internal/validate"
	"gorm.io/gorm"
)

// services bundles everything a command needs after startup wiring.
type services struct {
	cfg       *config.Config
	db        *gorm.DB
	leases    lease.Store
	notifier  *notify.Notifier
	svc       *reconcile.Service
	optimizer *validate.Optimizer
}

// buildServices loads config and constructs the shared service graph.
// Dependencies are created once here and passed down explicitly.
func buildServices(configPath string) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}

	var leases lease.Store
	if cfg.Redis.Addr != "" {
		rs := lease.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := rs.Ping(context.Background()); err != nil {
			return nil, err
		}
		leases = rs
	} else {
		leases = lease.NewMemoryStore()
	}

	var adapters []notify.Adapter
	if cfg.Notify.Slack.BotToken != "" {
		adapters = append(adapters, slack.New(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.ChannelID))
	}
	if cfg.Notify.Discord.BotToken != "" {
		da, err := discord.New(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID)
		if err != nil {
			log.Printf("discord adapter disabled: %v", err)
		} else {
			adapters = append(adapters, da)
		}
	}
	notifier := notify.New(adapters...)

	opts := []reconcile.Option{reconcile.WithNotifier(notifier)}
	if cfg.AI.Enabled {
		client := llm.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Model)
		opts = append(opts, reconcile.WithScorer(llm.NewScorer(client)))
	}

	svc, err := reconcile.New(gormDB, leases, opts...)
	if err != nil {
		return nil, err
	}

	optimizer := validate.New(gormDB, leases, cfg.Validate.GracePeriod, cfg.Validate.CorrectiveCooldown)

	return &services{
		cfg:       cfg,
		db:        gormDB,
		leases:    leases,
		notifier:  notifier,
		svc:       svc,
		optimizer: optimizer,
	}, nil
}
