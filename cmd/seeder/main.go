// cmd/seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/unclebandit/channel-ledger/internal/config"
	"github.com/unclebandit/channel-ledger/internal/db"
	"github.com/unclebandit/channel-ledger/internal/logging"
)

// seedFiles run in order; schema first so the data files have tables.
var seedFiles = []string{
	"schema.sql",
	"products.sql",
	"listings.sql",
	"leads.sql",
	"campaigns.sql",
}

func main() {
	dir := flag.String("dir", "seed", "directory holding the seed SQL files")
	schemaOnly := flag.Bool("schema-only", false, "apply schema.sql and stop")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	files := seedFiles
	if *schemaOnly {
		files = files[:1]
	}
	for _, file := range files {
		path := filepath.Join(*dir, file)
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("failed to read seed file", zap.String("file", path), zap.Error(err))
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			logger.Fatal("failed to execute seed file", zap.String("file", path), zap.Error(err))
		}
		logger.Info("Seeded", zap.String("file", path))
	}

	fmt.Println("Database seeding completed successfully!")
}
