package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/rs/cors"

	"taskboard-backend/internal/ai"
	"taskboard-backend/internal/analytics"
	"taskboard-backend/internal/auth"
	"taskboard-backend/internal/config"
	"taskboard-backend/internal/db"
	"taskboard-backend/internal/tasks"
)

func main() {
	cfg := config.Load()

	if string(cfg.JWTSecret) == config.DefaultJWTSecret {
		log.Println("[WARN] JWT_SECRET not set, using insecure default")
	}

	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		log.Fatal("❌ Failed to connect DB:", err)
	}
	defer database.Close()

	log.Println("✅ Connected to PostgreSQL!")

	provider, err := ai.NewProvider(cfg.AIProvider, cfg.AIAPIKey, cfg.AIModel, cfg.AITimeout)
	if err != nil {
		log.Printf("[WARN] AI suggestions unavailable: %v", err)
		provider = ai.Unavailable(err)
	}

	userStore := auth.NewSQLUserStore(database)
	taskStore := tasks.NewSQLStore(database)
	events := analytics.New(database)
	mw := auth.New(cfg.JWTSecret)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- AUTH API -----
	mux.HandleFunc("POST /api/auth/register", auth.RegisterHandler(userStore, cfg.JWTSecret, events))
	mux.HandleFunc("POST /api/auth/login", auth.LoginHandler(userStore, cfg.JWTSecret))
	mux.HandleFunc("GET /api/auth/users", mw.Wrap(auth.RequireAdmin(auth.ListUsersHandler(userStore))))
	mux.HandleFunc("GET /api/auth/me", mw.Wrap(auth.MeHandler(userStore)))
	mux.HandleFunc("POST /api/auth/logout", mw.Wrap(auth.LogoutHandler()))
	mux.HandleFunc("DELETE /api/auth/account", mw.Wrap(auth.DeleteAccountHandler(userStore)))

	// ----- TASKS API -----
	mux.HandleFunc("POST /api/tasks", mw.Wrap(tasks.CreateTaskHandler(taskStore, events)))
	mux.HandleFunc("GET /api/tasks", mw.Wrap(tasks.ListTasksHandler(taskStore)))
	mux.HandleFunc("PUT /api/tasks/{id}", mw.Wrap(tasks.UpdateTaskHandler(taskStore, events)))
	mux.HandleFunc("DELETE /api/tasks/{id}", mw.Wrap(tasks.DeleteTaskHandler(taskStore, events)))
	mux.HandleFunc("POST /api/tasks/{id}/suggest", mw.Wrap(tasks.SuggestHandler(taskStore, provider, events)))
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", mw.Wrap(tasks.AcceptSubtasksHandler(taskStore, events)))

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	})

	handler := c.Handler(mux)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Println("🚀 API server is running on", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}
