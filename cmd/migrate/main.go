package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jhoicas/minimarket-api/internal/infrastructure/postgres"
	"github.com/jhoicas/minimarket-api/pkg/config"
	"github.com/jhoicas/minimarket-api/pkg/logger"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Nivel de log (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: logLevel, Service: cfg.App.Name})

	m, err := postgres.NewMigrator(cfg.DB.ConnectionString(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar migraciones")
	}
	defer m.Close()

	switch args[0] {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("migración fallida")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "uso: migrate [-log-level nivel] up|down")
	fmt.Fprintln(os.Stderr, "  up    aplica las migraciones pendientes")
	fmt.Fprintln(os.Stderr, "  down  revierte todas las migraciones")
}
