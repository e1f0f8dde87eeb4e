package main

import (
	"flag"
	"log"
	"os"

	"opinionpointer/internal/di"
	"opinionpointer/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return err
	}
	log.Printf("starting env=%s postgres=%s clickhouse=%v kafka=%v",
		cfg.Environment, cfg.Postgres.Host, cfg.ClickHouse.Enabled, cfg.Kafka.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		return err
	}
	return app.Run()
}
