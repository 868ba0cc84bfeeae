package http

import (
	"net/http"

	"carwash-backend/internal/handlers"
	"carwash-backend/internal/middleware"
	"carwash-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func NewRouter(
	logger *logrus.Logger,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	catalogHandler *handlers.CatalogHandler,
	jobHandler *handlers.JobHandler,
	reportHandler *handlers.ReportHandler,
	healthHandler *handlers.HealthHandler,
	liveHandler *handlers.LiveHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery(logger), middleware.RequestLogger(logger), middleware.MetricsMiddleware)

	// Health checks (NO AUTHENTICATION REQUIRED)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAdmin(h)
	}
	staffManagers := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireRole(models.RoleAdmin, models.RoleManager)(h)
	}

	// Session
	api.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	api.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Users
	api.Handle("/users", staffManagers(userHandler.ListUsers)).Methods("GET")
	api.Handle("/users", adminOnly(userHandler.CreateUser)).Methods("POST")
	api.Handle("/users/{id:[0-9]+}/active", adminOnly(userHandler.SetActive)).Methods("PATCH")

	// Branches
	api.HandleFunc("/branches", catalogHandler.ListBranches).Methods("GET")
	api.Handle("/branches", adminOnly(catalogHandler.CreateBranch)).Methods("POST")
	api.Handle("/branches/{id:[0-9]+}", adminOnly(catalogHandler.UpdateBranch)).Methods("PUT")
	api.Handle("/branches/{id:[0-9]+}/active", adminOnly(catalogHandler.SetBranchActive)).Methods("PATCH")

	// Washers (scoped to the caller's branch)
	api.HandleFunc("/washers", catalogHandler.ListWashers).Methods("GET")
	api.Handle("/washers", staffManagers(catalogHandler.CreateWasher)).Methods("POST")
	api.Handle("/washers/{id:[0-9]+}", staffManagers(catalogHandler.UpdateWasher)).Methods("PUT")
	api.Handle("/washers/{id:[0-9]+}/active", staffManagers(catalogHandler.SetWasherActive)).Methods("PATCH")

	// Service items (global catalogue)
	api.HandleFunc("/service-items", catalogHandler.ListServiceItems).Methods("GET")
	api.Handle("/service-items", adminOnly(catalogHandler.CreateServiceItem)).Methods("POST")
	api.Handle("/service-items/{id:[0-9]+}", adminOnly(catalogHandler.UpdateServiceItem)).Methods("PUT")
	api.Handle("/service-items/{id:[0-9]+}/active", adminOnly(catalogHandler.SetServiceItemActive)).Methods("PATCH")

	// Jobs
	api.HandleFunc("/jobs", jobHandler.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", jobHandler.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id:[0-9]+}", jobHandler.GetJob).Methods("GET")

	// Reports
	api.HandleFunc("/reports/daily", reportHandler.Daily).Methods("GET")
	api.HandleFunc("/reports/daily.pdf", reportHandler.DailyPDF).Methods("GET")
	api.HandleFunc("/reports/daily.xlsx", reportHandler.DailyXLSX).Methods("GET")
	api.Handle("/reports/all-branches", adminOnly(reportHandler.AllBranches)).Methods("GET")
	api.HandleFunc("/reports/washers", reportHandler.WasherDays).Methods("GET")
	api.HandleFunc("/reports/branch-days", reportHandler.BranchDays).Methods("GET")
	api.Handle("/reports/reconcile", staffManagers(reportHandler.ReconcileCheck)).Methods("GET")
	api.Handle("/reports/reconcile", adminOnly(reportHandler.ReconcileRepair)).Methods("POST")

	// Live job events
	api.HandleFunc("/live", liveHandler.Subscribe).Methods("GET")

	return r
}
