package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"

	"suprisk/internal/config"
	"suprisk/internal/handlers/reports"
	"suprisk/internal/pipeline"
	"suprisk/internal/response"
	"suprisk/internal/websocket"
)

// serve starts the read-only reports API plus a trigger endpoint for the
// pipeline. The pipeline is single-writer: only one run at a time.
func serve(db *sql.DB, cfg config.Config) error {
	hub := websocket.NewHub()
	h := &reports.Handler{DB: db}
	runner := pipeline.New(db, cfg, hub)

	running := make(chan struct{}, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Serve)

	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		case path == "health" && r.Method == "GET":
			h.Health(w, r)
		case path == "kpis" && r.Method == "GET":
			h.ListKPIs(w, r)
		case path == "risk" && r.Method == "GET":
			h.ListRisk(w, r)
		case path == "risk/export" && r.Method == "GET":
			h.ExportRisk(w, r)
		case parts[0] == "risk" && len(parts) == 2 && r.Method == "GET":
			h.GetRisk(w, r, parts[1])
		case path == "runs" && r.Method == "GET":
			h.ListRuns(w, r)
		case path == "pipeline" && r.Method == "POST":
			select {
			case running <- struct{}{}:
				go func() {
					defer func() { <-running }()
					if _, err := runner.Run(); err != nil {
						log.Print("pipeline: ", err)
					}
				}()
				w.WriteHeader(202)
				response.JSON(w, map[string]string{"status": "started"})
			default:
				response.Err(w, "a pipeline run is already in progress", 409)
			}
		default:
			response.Err(w, "not found", 404)
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("serve: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
