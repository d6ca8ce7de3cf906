package routes

import (
	"batch-size-optimizer/api/rest/handlers"
	"batch-size-optimizer/core/optimizer"
	"batch-size-optimizer/core/repository"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, engine *optimizer.Engine, db *repository.DB) {
	jobHandler := handlers.NewJobHandler(engine)
	healthHandler := handlers.NewHealthHandler(db)

	api := r.PathPrefix("/v1").Subrouter()

	// Job endpoints
	api.HandleFunc("/jobs", jobHandler.RegisterJob).Methods("POST")
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/trials", jobHandler.ReportTrial).Methods("POST")
	api.HandleFunc("/jobs/{id}/trials", jobHandler.ListTrials).Methods("GET")

	// Operational endpoints
	r.HandleFunc("/healthz", healthHandler.Healthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
