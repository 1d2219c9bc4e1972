package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"suprisk/internal/config"
	"suprisk/internal/generate"
	"suprisk/internal/kpi"
	"suprisk/internal/load"
	"suprisk/internal/pipeline"
	"suprisk/internal/risk"
	"suprisk/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: suprisk [flags] <command>

Commands:
  generate   write the synthetic CSV dataset
  load       load the CSVs into the warehouse
  kpis       rebuild the supplier_kpis table
  risk       rebuild the supplier_risk_summary table
  pipeline   run all four stages in order (default)
  serve      start the read-only reports API

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "suprisk.yaml", "Path to YAML config file")
	dbPath := flag.String("db", "", "SQLite warehouse path (overrides config)")
	dataDir := flag.String("data", "", "CSV data directory (overrides config)")
	port := flag.Int("port", 0, "HTTP port for serve (overrides config)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Config load failed: ", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *port != 0 {
		cfg.Port = *port
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "pipeline"
	}

	if cmd == "generate" {
		// No warehouse needed for the generator.
		if err := generate.Run(cfg.Generator, cfg.DataDir); err != nil {
			log.Fatal("Generate failed: ", err)
		}
		log.Printf("generate: dataset written to %s", cfg.DataDir)
		return
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("DB init failed: ", err)
	}
	defer db.Close()

	switch cmd {
	case "load":
		if _, err := load.Run(db, cfg.DataDir); err != nil {
			log.Fatal("Load failed: ", err)
		}
	case "kpis":
		if err := kpi.Run(db); err != nil {
			log.Fatal("KPI stage failed: ", err)
		}
	case "risk":
		if err := risk.Run(db); err != nil {
			log.Fatal("Risk stage failed: ", err)
		}
	case "pipeline":
		runner := pipeline.New(db, cfg, nil)
		runID, err := runner.Run()
		if err != nil {
			log.Fatal("Pipeline failed: ", err)
		}
		log.Printf("pipeline: run %s succeeded", runID)
	case "serve":
		if err := serve(db, cfg); err != nil {
			log.Fatal("Server failed: ", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}
