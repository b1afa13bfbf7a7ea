package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"TODOLIST_BACK-END/internal/handlers"
	"TODOLIST_BACK-END/internal/middleware"
)

// Dependencies are the handlers and services the router wires together
type Dependencies struct {
	Auth         *handlers.AuthHandler
	Todos        *handlers.TodosHandler
	Health       *handlers.HealthHandler
	Tokens       middleware.TokenVerifier
	MaxBodyBytes int64
}

// NewRouter configures all application routes
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer)
	if deps.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(deps.MaxBodyBytes))
	}

	// Health check routes
	r.Get("/healthz", deps.Health.HealthCheck)
	r.Get("/livez", deps.Health.LivenessCheck)
	r.Get("/readyz", deps.Health.ReadinessCheck)

	// API docs
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Authentication routes
	r.Post("/api/auth/register", deps.Auth.Register)
	r.Post("/api/auth/login", deps.Auth.Login)

	// Todo routes, all behind the bearer token check
	r.Route("/api/todos", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(deps.Tokens))
		r.Get("/", deps.Todos.ListTodos)
		r.Post("/", deps.Todos.CreateTodo)
		r.Put("/{id}", deps.Todos.UpdateTodo)
		r.Delete("/{id}", deps.Todos.DeleteTodo)
	})

	// Root route
	r.Get("/", rootHandler)

	return r
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Todo backend is running."))
}
