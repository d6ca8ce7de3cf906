package handlers

import (
	"encoding/json"
	"net/http"

	"batch-size-optimizer/core/models"
	"batch-size-optimizer/core/monitoring"
	"batch-size-optimizer/core/optimizer"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	engine *optimizer.Engine
}

// NewJobHandler creates a new job handler
func NewJobHandler(engine *optimizer.Engine) *JobHandler {
	return &JobHandler{engine: engine}
}

// ReportTrialRequest is the body for reporting a trial outcome
type ReportTrialRequest struct {
	SeqNo      int     `json:"seq_no"`
	BatchSize  int     `json:"batch_size"`
	TimeCost   float64 `json:"time"`
	EnergyCost float64 `json:"energy"`
}

// RegisterJob handles POST /v1/jobs
func (h *JobHandler) RegisterJob(w http.ResponseWriter, r *http.Request) {
	var cfg models.JobConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, optimizer.NewError(optimizer.CodeInvalidConfig, "", "",
			"invalid request body: %v", err))
		return
	}

	// Callers may omit the job id and let the server mint one, the
	// way training scripts usually do on a first run.
	if cfg.JobID == "" {
		cfg.JobID = "job-" + uuid.NewString()
	}

	handle, err := h.engine.RegisterJob(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	monitoring.JobsRegistered.Inc()
	monitoring.ActiveJobs.Inc()

	writeJSON(w, http.StatusCreated, handle)
}

// ReportTrial handles POST /v1/jobs/{id}/trials
func (h *JobHandler) ReportTrial(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(monitoring.ReportDuration)
	defer timer.ObserveDuration()

	vars := mux.Vars(r)
	jobID := vars["id"]

	var req ReportTrialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, optimizer.NewError(optimizer.CodeInvalidConfig, jobID, "",
			"invalid request body: %v", err))
		return
	}

	decision, applied, err := h.engine.ReportTrial(models.TrialReport{
		JobID:      jobID,
		SeqNo:      req.SeqNo,
		BatchSize:  req.BatchSize,
		TimeCost:   req.TimeCost,
		EnergyCost: req.EnergyCost,
	})
	if err != nil {
		monitoring.TrialReports.WithLabelValues("rejected").Inc()
		writeError(w, err)
		return
	}

	if applied {
		monitoring.TrialReports.WithLabelValues("accepted").Inc()
		if decision.Kind == models.DecisionStop {
			monitoring.ActiveJobs.Dec()
		}
	} else {
		monitoring.TrialReports.WithLabelValues("duplicate").Inc()
	}
	monitoring.Decisions.WithLabelValues(string(decision.Kind)).Inc()

	writeJSON(w, http.StatusOK, decision)
}

// GetJob handles GET /v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	snap, err := h.engine.GetState(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// ListTrials handles GET /v1/jobs/{id}/trials
func (h *JobHandler) ListTrials(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	trials, err := h.engine.ListTrials(vars["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if trials == nil {
		trials = []models.Trial{}
	}

	writeJSON(w, http.StatusOK, trials)
}
