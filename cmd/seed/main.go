package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"content-pipeline/internal/config"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/repository"
	pg "content-pipeline/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	repo := pg.NewContentRepo(pool, pg.NewTxManager(pool))

	// If drafts already exist, do nothing.
	existing, err := repo.ListByStatus(ctx, repository.NoTX, model.StatusDraft, 1)
	if err != nil {
		log.Fatalf("list drafts: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("draft items already present. No changes.")
		return
	}

	seed := []*model.ContentItem{
		{
			Status:           model.StatusDraft,
			Source:           "linkedin_scraper",
			SourceURL:        "https://www.linkedin.com/posts/example-activity-1",
			SourceTitle:      "Five takeaways from our latest product launch",
			OriginalText:     "We shipped the new release last week and the numbers are in...",
			NeedsTranslation: true,
			Author:           "Jane Example",
			Platforms:        []model.Platform{model.PlatformFacebook, model.PlatformLinkedIn},
		},
		{
			Status:           model.StatusDraft,
			Source:           "facebook_scraper",
			SourceURL:        "https://www.facebook.com/example/posts/2",
			SourceTitle:      "Команда росте: шукаємо контент-менеджера",
			OriginalText:     "Ми розширюємо команду і шукаємо людину, яка любить писати...",
			NeedsTranslation: false,
			Platforms:        []model.Platform{model.PlatformFacebook},
		},
		{
			Status:           model.StatusDraft,
			Source:           "rss",
			SourceURL:        "https://blog.example.com/industry-report-2026",
			SourceTitle:      "Industry report 2026: what changed",
			OriginalText:     "The yearly report covers the three shifts everyone is talking about...",
			NeedsTranslation: true,
			Platforms:        []model.Platform{model.PlatformLinkedIn},
		},
	}

	for _, item := range seed {
		if err := repo.Save(ctx, repository.NoTX, item); err != nil {
			log.Fatalf("seed %q: %v", item.SourceTitle, err)
		}
		fmt.Printf("seeded: %q (id=%d, source=%s)\n", item.SourceTitle, item.ID, item.Source)
	}

	fmt.Println("Seeding complete.")
}
