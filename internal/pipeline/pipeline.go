// Package pipeline sequences the four stages of the engine:
// generate -> load -> kpis -> risk. A stage runs only after the previous one
// succeeded; a transient storage failure gets a bounded number of retries,
// anything else fails the run outright. Each run is recorded in the
// pipeline_runs table and its progress broadcast over the WebSocket hub.
package pipeline

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"suprisk/internal/config"
	"suprisk/internal/generate"
	"suprisk/internal/kpi"
	"suprisk/internal/load"
	"suprisk/internal/risk"
	"suprisk/internal/websocket"
)

// Stage names, in execution order.
const (
	StageGenerate = "generate"
	StageLoad     = "load"
	StageKPIs     = "kpis"
	StageRisk     = "risk"
)

// Runner executes the pipeline against one warehouse.
type Runner struct {
	DB  *sql.DB
	Cfg config.Config
	Hub *websocket.Hub

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New creates a Runner.
func New(db *sql.DB, cfg config.Config, hub *websocket.Hub) *Runner {
	return &Runner{DB: db, Cfg: cfg, Hub: hub, sleep: time.Sleep}
}

type stage struct {
	name string
	run  func() error
}

func (r *Runner) stages() []stage {
	return []stage{
		{StageGenerate, func() error { return generate.Run(r.Cfg.Generator, r.Cfg.DataDir) }},
		{StageLoad, func() error { _, err := load.Run(r.DB, r.Cfg.DataDir); return err }},
		{StageKPIs, func() error { return kpi.Run(r.DB) }},
		{StageRisk, func() error { return risk.Run(r.DB) }},
	}
}

// Run executes all stages in order and returns the run ID. On failure the
// error names the failing stage; earlier stages' output is left in place, so
// a retry can resume by re-running the whole pipeline.
func (r *Runner) Run() (string, error) {
	runID := uuid.NewString()
	started := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.DB.Exec("INSERT INTO pipeline_runs (id, started_at, status) VALUES (?,?,'running')",
		runID, started); err != nil {
		return runID, fmt.Errorf("pipeline: record run: %w", err)
	}

	for _, st := range r.stages() {
		if err := r.runStage(runID, st); err != nil {
			r.finish(runID, "failed", st.name, err.Error())
			return runID, fmt.Errorf("pipeline: stage %s: %w", st.name, err)
		}
	}

	r.finish(runID, "succeeded", "", "")
	return runID, nil
}

// runStage runs one stage with bounded retry on transient failures.
func (r *Runner) runStage(runID string, st stage) error {
	r.Hub.Broadcast(websocket.Event{RunID: runID, Stage: st.name, Status: "started"})
	log.Printf("pipeline: stage %s started", st.name)

	var err error
	for attempt := 0; attempt <= r.Cfg.Pipeline.Retries; attempt++ {
		if attempt > 0 {
			r.Hub.Broadcast(websocket.Event{RunID: runID, Stage: st.name, Status: "retrying",
				Detail: fmt.Sprintf("attempt %d: %v", attempt+1, err)})
			log.Printf("pipeline: stage %s retry %d after: %v", st.name, attempt, err)
			r.sleep(time.Duration(r.Cfg.Pipeline.RetryDelay))
		}
		err = st.run()
		if err == nil {
			r.Hub.Broadcast(websocket.Event{RunID: runID, Stage: st.name, Status: "succeeded"})
			return nil
		}
		if !Transient(err) {
			break
		}
	}

	r.Hub.Broadcast(websocket.Event{RunID: runID, Stage: st.name, Status: "failed", Detail: err.Error()})
	return err
}

func (r *Runner) finish(runID, status, failedStage, errMsg string) {
	finished := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.DB.Exec(
		"UPDATE pipeline_runs SET finished_at=?, status=?, failed_stage=?, error=? WHERE id=?",
		finished, status, failedStage, errMsg, runID); err != nil {
		log.Printf("pipeline: update run %s: %v", runID, err)
	}
}

// Transient reports whether an error is worth retrying: contention on the
// SQLite file rather than a real data or logic failure.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "busy")
}
