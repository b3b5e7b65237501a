// migrate-to-postgres copies the battle history from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/battles.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user battleadvisor \
//	    -pg-password battleadvisor \
//	    -pg-database battleadvisor
//
// Battles already present in PostgreSQL are skipped, so the tool can be run
// again after an interrupted migration.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/lawnchairsociety/battleadvisor/internal/database"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/battles.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "battleadvisor", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "battleadvisor", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	batchSize := flag.Int("batch", 500, "Battles read per batch")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	if _, err := os.Stat(*sqlitePath); err != nil {
		log.Fatalf("SQLite database not found: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Open SQLite database
	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	total, err := src.CountBattles(ctx)
	if err != nil {
		log.Fatalf("Failed to count battles: %v", err)
	}
	log.Printf("Found %d battles", total)

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
		log.Printf("Would migrate up to %d battles to %s@%s:%d/%s", total, *pgUser, *pgHost, *pgPort, *pgDatabase)
		return
	}

	pg := database.DefaultPostgresConfig()
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	// Opening PostgreSQL also ensures its schema is ready
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.OpenWithConfig(database.Config{Driver: "postgres", Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	stats, err := copyBattles(ctx, src, dst, *batchSize, func(s copyStats) {
		log.Printf("  %d/%d battles processed", s.Copied+s.Skipped, total)
	})
	if err != nil {
		log.Fatalf("Migration failed after %d battles: %v", stats.Copied, err)
	}

	log.Println("====================================")
	log.Printf("Migration complete! Battles migrated: %d, already present: %d", stats.Copied, stats.Skipped)
}

// battleSource is read in ID order.
type battleSource interface {
	BattlesAfter(ctx context.Context, afterID int64, limit int) ([]database.BattleRecord, error)
}

type battleSink interface {
	SaveBattle(ctx context.Context, rec *database.BattleRecord) error
}

type copyStats struct {
	Copied  int
	Skipped int
}

// copyBattles copies every battle from src to dst in batches, skipping
// battles dst already holds. progress is called after each batch.
func copyBattles(ctx context.Context, src battleSource, dst battleSink, batchSize int, progress func(copyStats)) (copyStats, error) {
	var stats copyStats
	if batchSize <= 0 {
		batchSize = 500
	}

	var lastID int64
	for {
		batch, err := src.BattlesAfter(ctx, lastID, batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			return stats, nil
		}

		for _, rec := range batch {
			lastID = rec.ID
			err := dst.SaveBattle(ctx, &rec)
			switch {
			case errors.Is(err, database.ErrDuplicateBattle):
				stats.Skipped++
			case err != nil:
				return stats, err
			default:
				stats.Copied++
			}
		}

		if progress != nil {
			progress(stats)
		}
	}
}
