// Package api serves the planner, grocery list, recipes and assistant as a JSON API.
package api

import (
	"net/http"
	"time"

	"balanced-bowl/internal/app"
	"balanced-bowl/internal/auth"
	"balanced-bowl/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// Server handles HTTP requests for one App.
type Server struct {
	app        *app.App
	jwt        *auth.JWTManager
	collectors *metrics.Collectors
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	dataPath   string
}

// NewServer creates a Server. collectors may be nil to disable Prometheus metrics.
// dataPath is reported by the health endpoint.
func NewServer(a *app.App, jwt *auth.JWTManager, collectors *metrics.Collectors, dataPath string) *Server {
	return &Server{
		app:        a,
		jwt:        jwt,
		collectors: collectors,
		validate:   newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		dataPath: dataPath,
	}
}

// Routes returns the HTTP handler of the API.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.collectors != nil {
		r.Handle("/metrics", s.collectors.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", s.handleNewSession)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			// Streams stay open, so they are kept out of the timeout below.
			r.Get("/state/stream", s.handleStateStream)

			r.Group(func(r chi.Router) {
				r.Use(chimiddleware.Timeout(60 * time.Second))

				r.Route("/recipes", func(r chi.Router) {
					r.Get("/search", s.handleSearchRecipes)
					r.Get("/random", s.handleRandomRecipes)
					r.Post("/by-ingredients", s.handleFindByIngredients)
					r.Get("/{id}", s.handleGetRecipe)
					r.Post("/{id}/rating", s.handleRateRecipe)
					r.Get("/{id}/cook/{step}", s.handleCookStep)
					r.Get("/{id}/cook/{step}/audio", s.handleCookAudio)
				})
				r.Get("/products/search", s.handleSearchProducts)

				r.Route("/planner", func(r chi.Router) {
					r.Get("/", s.handleGetPlanner)
					r.Put("/{day}/{mealType}", s.handleAssignMeal)
					r.Delete("/{day}/{mealType}", s.handleRemoveMeal)
				})

				r.Route("/groceries", func(r chi.Router) {
					r.Get("/", s.handleGetGroceries)
					r.Get("/print", s.handlePrintGroceries)
					r.Post("/", s.handleAddGroceries)
					r.Delete("/", s.handleClearGroceries)
					r.Post("/custom", s.handleAddCustomItem)
					r.Post("/toggle", s.handleToggleItem)
					r.Post("/edit", s.handleEditItem)
					r.Post("/from-plan", s.handleGroceriesFromPlan)
					r.Post("/from-recipe/{id}", s.handleGroceriesFromRecipe)
				})

				r.Post("/chat", s.handleChat)
				r.Post("/speak", s.handleSpeak)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := metrics.GetSysHealth(s.dataPath)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"uptime":     h.Uptime.String(),
		"goroutines": h.Goroutines,
		"allocMB":    h.AllocMB,
		"sessions":   s.app.Sessions().Len(),
		"dataSize":   h.DataDiskSize,
	})
}
