package main

import (
	"context"
	"flag"
	"log"
	"time"

	"screenlog/internal/catalog"
	"screenlog/internal/metadata"
	"screenlog/pkg/database"
	"screenlog/pkg/utils"
)

func main() {
	pages := flag.Int("pages", 3, "popular pages to pull per media type")
	mediaType := flag.String("type", "", "sync only one media type (movie or tv)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	tmdbCfg := utils.LoadTMDBConfig()
	if tmdbCfg.APIKey == "" {
		log.Fatal("SCREENLOG_TMDB_API_KEY is required")
	}

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	client := metadata.NewClient(tmdbCfg)
	repo := catalog.NewRepo(db)

	mediaTypes := []string{"movie", "tv"}
	if *mediaType != "" {
		mediaTypes = []string{*mediaType}
	}

	total := 0
	for _, mt := range mediaTypes {
		for page := 1; page <= *pages; page++ {
			titles, err := client.Popular(ctx, mt, page)
			if err != nil {
				log.Fatalf("fetch popular %s page %d: %v", mt, page, err)
			}
			for _, t := range titles {
				if err := repo.Upsert(ctx, t); err != nil {
					log.Fatalf("upsert %s: %v", t.ID, err)
				}
			}
			total += len(titles)
			log.Printf("synced %s page %d (%d titles)", mt, page, len(titles))
		}
	}

	log.Printf("✅ catalog synced, %d titles upserted", total)
}
