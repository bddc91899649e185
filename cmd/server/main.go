package main

import (
	"log"
	"net/http"
	"os"

	"reflection-portal/internal/apiclient"
	"reflection-portal/internal/auth"
	"reflection-portal/internal/models"
	"reflection-portal/internal/notify"
	"reflection-portal/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (ignore error in production, env vars set directly)
	_ = godotenv.Load()

	// Required env vars
	storageURL := getEnv("STORAGE_API_URL", "")
	sessionSecret := getEnv("SESSION_SECRET", "")
	port := getEnv("PORT", "8080")

	if storageURL == "" {
		log.Fatal("❌ STORAGE_API_URL is required")
	}
	if sessionSecret == "" {
		log.Fatal("❌ SESSION_SECRET is required")
	}

	// Storage service client, one collection per record kind
	client := apiclient.New(storageURL, nil)
	feedback := apiclient.NewCollection[models.FeedbackRecord, models.FeedbackDraft](client, "/api/feedback")
	improvements := apiclient.NewCollection[models.ImprovementRecord, models.ImprovementDraft](client, "/api/improvements")

	// Sessions and identity provider
	sessions := auth.NewSessions(sessionSecret)
	provider := &auth.Provider{
		AuthorizeURL: getEnv("AUTH_AUTHORIZE_URL", auth.DefaultAuthorizeURL),
		TokenURL:     getEnv("AUTH_TOKEN_URL", auth.DefaultTokenURL),
		UserInfoURL:  getEnv("AUTH_USERINFO_URL", auth.DefaultUserInfoURL),
		ClientID:     getEnv("AUTH_CLIENT_ID", ""),
		ClientSecret: getEnv("AUTH_CLIENT_SECRET", ""),
		RedirectURL:  getEnv("AUTH_REDIRECT_URL", "http://localhost:"+port+"/auth/callback"),
	}

	// Maintainer notifications: email when configured, log otherwise
	var notifier notify.Notifier
	if apiKey := os.Getenv("RESEND_API_KEY"); apiKey != "" {
		notifier = notify.NewEmailNotifier(apiKey, getEnv("FROM_EMAIL", ""), getEnv("NOTIFY_EMAIL", ""))
	} else {
		log.Println("⚠️  RESEND_API_KEY not set, improvement reports will be logged only")
		notifier = notify.NewLogNotifier()
	}

	handler := web.NewHandler(feedback, improvements, sessions, provider, notifier)

	// Setup chi router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"reflection-portal"}`))
	})

	// Public routes (no auth required)
	r.Handle("/static/*", handler.Static())
	r.Get("/login", handler.LoginPage)
	r.Get("/auth/login", handler.StartLogin)
	r.Get("/auth/callback", handler.AuthCallback)
	r.Post("/auth/logout", handler.Logout)
	r.Get("/session", handler.Session)

	// Protected routes (session required)
	r.Group(func(r chi.Router) {
		r.Use(sessions.RequireUser)

		r.Get("/", handler.HomePage)
		r.Post("/", handler.HomeSubmit)
		r.Get("/feedback", handler.FeedbackPage)
		r.Post("/feedback", handler.FeedbackSubmit)
		r.Post("/feedback/{id}", handler.FeedbackUpdate)
		r.Get("/feedback/{id}/delete", handler.FeedbackDeleteConfirm)
		r.Post("/feedback/{id}/delete", handler.FeedbackDelete)
		r.Get("/filter", handler.FilterPage)
		r.Get("/students", handler.StudentsPage)
		r.Post("/students/{id}", handler.StudentsUpdate)
		r.Get("/students/{id}/delete", handler.StudentsDeleteConfirm)
		r.Post("/students/{id}/delete", handler.StudentsDelete)
		r.Get("/improvements", handler.ImprovementsPage)
		r.Post("/improvements", handler.ImprovementCreate)
		r.Post("/improvements/{id}", handler.ImprovementUpdate)
		r.Get("/improvements/{id}/delete", handler.ImprovementDeleteConfirm)
		r.Post("/improvements/{id}/delete", handler.ImprovementDelete)
	})

	// Start server
	log.Printf("🚀 Reflection portal starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
