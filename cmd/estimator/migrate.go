package main

import (
	"flag"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meridianhealth/estimator/internal/config"
	"github.com/meridianhealth/estimator/internal/ratestore"
)

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.RateDB.DSN), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open rate store: %v\n", err)
		os.Exit(1)
	}

	if err := ratestore.Migrate(db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("rate store migrations applied")
}
