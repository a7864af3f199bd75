package main

import (
	"encoding/json"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dormbase/dorm-billing/backend/config"
	"github.com/dormbase/dorm-billing/backend/database"
	"github.com/dormbase/dorm-billing/backend/handlers"
	"github.com/dormbase/dorm-billing/backend/middleware"
	"github.com/dormbase/dorm-billing/backend/services"
)

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC RECOVERED: %v", err)
				log.Printf("Stack trace: %s", debug.Stack())

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func main() {
	log.Println("Starting Dorm Billing System...")
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	billingService := services.NewBillingService(db)
	pdfGenerator := services.NewPDFGenerator(cfg.InvoiceDir)
	statusScheduler := services.NewStatusScheduler(db, billingService)

	go statusScheduler.Start()

	authHandler := handlers.NewAuthHandler(db, cfg.JWTSecret)
	roomHandler := handlers.NewRoomHandler(db)
	tenantHandler := handlers.NewTenantHandler(db)
	settingsHandler := handlers.NewSettingsHandler(db)
	centralMeterHandler := handlers.NewCentralMeterHandler(db)
	billingHandler := handlers.NewBillingHandler(db, billingService, pdfGenerator)
	expenseHandler := handlers.NewExpenseHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db)
	liveLogHandler := handlers.NewLiveLogHandler(db)
	exportHandler := handlers.NewExportHandler(db, billingService)

	r := mux.NewRouter()

	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/health", healthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/auth/change-password", authHandler.ChangePassword).Methods("POST")

	api.HandleFunc("/rooms", roomHandler.List).Methods("GET")
	api.HandleFunc("/rooms", roomHandler.Create).Methods("POST")
	api.HandleFunc("/rooms/{id}", roomHandler.Get).Methods("GET")
	api.HandleFunc("/rooms/{id}", roomHandler.Update).Methods("PUT")
	api.HandleFunc("/rooms/{id}", roomHandler.Delete).Methods("DELETE")

	api.HandleFunc("/tenants", tenantHandler.List).Methods("GET")
	api.HandleFunc("/tenants", tenantHandler.Create).Methods("POST")
	api.HandleFunc("/tenants/{id}", tenantHandler.Get).Methods("GET")
	api.HandleFunc("/tenants/{id}", tenantHandler.Update).Methods("PUT")
	api.HandleFunc("/tenants/{id}", tenantHandler.Delete).Methods("DELETE")

	api.HandleFunc("/settings", settingsHandler.Get).Methods("GET")
	api.HandleFunc("/settings", settingsHandler.Update).Methods("PUT")

	api.HandleFunc("/central-meters", centralMeterHandler.List).Methods("GET")
	api.HandleFunc("/central-meters", centralMeterHandler.Create).Methods("POST")
	api.HandleFunc("/central-meters/{month}", centralMeterHandler.GetByMonth).Methods("GET")
	api.HandleFunc("/central-meters/{id:[0-9]+}", centralMeterHandler.Delete).Methods("DELETE")

	api.HandleFunc("/billing/generate", billingHandler.GenerateBills).Methods("POST")
	api.HandleFunc("/billing/single", billingHandler.GenerateSingle).Methods("POST")
	api.HandleFunc("/billing/entries", billingHandler.ListEntries).Methods("GET")
	api.HandleFunc("/billing/entries/{id}", billingHandler.GetEntry).Methods("GET")
	api.HandleFunc("/billing/entries/{id}/status", billingHandler.UpdateStatus).Methods("PUT")
	api.HandleFunc("/billing/entries/{id}", billingHandler.DeleteEntry).Methods("DELETE")
	api.HandleFunc("/billing/entries/{id}/pdf", billingHandler.DownloadPDF).Methods("GET")
	api.HandleFunc("/billing/summary/{month}", billingHandler.GetSummary).Methods("GET")

	api.HandleFunc("/expenses", expenseHandler.List).Methods("GET")
	api.HandleFunc("/expenses", expenseHandler.Create).Methods("POST")
	api.HandleFunc("/expenses/{id}", expenseHandler.Update).Methods("PUT")
	api.HandleFunc("/expenses/{id}", expenseHandler.Delete).Methods("DELETE")

	api.HandleFunc("/dashboard/stats", dashboardHandler.GetStats).Methods("GET")
	api.HandleFunc("/dashboard/logs", dashboardHandler.GetLogs).Methods("GET")
	api.HandleFunc("/dashboard/logs/live", liveLogHandler.Stream).Methods("GET")

	api.HandleFunc("/export/billing", exportHandler.ExportBilling).Methods("GET")
	api.HandleFunc("/export/expenses", exportHandler.ExportExpenses).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:4173", "*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	handler := c.Handler(r)

	server := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  180 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.ServerAddress)
	log.Println("Billing status scheduler running (hourly)")
	log.Println("Default credentials: admin / admin123")
	log.Println("IMPORTANT: Change default password after first login!")
	log.Println("===========================================")

	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
