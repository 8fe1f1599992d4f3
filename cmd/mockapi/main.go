package main

import (
	"fmt"
	"os"

	"github.com/authgate-dev/authgate/internal/config"
	"github.com/authgate-dev/authgate/internal/logger"
	"github.com/authgate-dev/authgate/internal/mockapi"
)

func main() {
	cfg, err := config.LoadMockAPI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := mockapi.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	log.Info().Msg("Starting mock auth API...")

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
