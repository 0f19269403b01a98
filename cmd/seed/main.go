package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"commentiq-monitor/internal/config"
	"commentiq-monitor/internal/domain/model"
	pg "commentiq-monitor/internal/infra/db/postgres"
)

// Seeds a few sample monitors for local development. Idempotent: does
// nothing when monitors already exist.
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

	repo := pg.NewMonitorRepo(pool)

	existing, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("count monitors: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d monitors already present. No changes.\n", existing)
		return
	}

	seed := []struct {
		URL      string
		Platform string
		Cadence  time.Duration
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "youtube", 6 * time.Hour},
		{"https://www.youtube.com/watch?v=jNQXAC9IVRw", "youtube", 24 * time.Hour},
		{"https://www.tiktok.com/@scout2015/video/6718335390845095173", "tiktok", 12 * time.Hour},
	}

	created := 0
	for _, s := range seed {
		m, err := model.NewMonitor("", s.URL, s.Platform, s.Cadence)
		if err != nil {
			log.Fatalf("build monitor %q: %v", s.URL, err)
		}
		if err := repo.Save(ctx, m); err != nil {
			log.Fatalf("save monitor %q: %v", s.URL, err)
		}
		fmt.Printf("  - %s (%s, every %s)\n", m.VideoURL, m.Platform, m.Cadence)
		created++
	}
	fmt.Printf("Seeded %d monitors.\n", created)
}
