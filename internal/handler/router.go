package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/lonelytx/coinledger-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса coinledger.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	// callback внешнего сервиса подтверждения
	r.Post("/claim", h.Claim)

	// API фронтенд-процесса
	r.Route("/api", func(r chi.Router) {
		r.Get("/packs", h.GetPacks)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Post("/daily", h.ClaimDaily)
			r.Post("/game", h.Play)

			r.Group(func(r chi.Router) {
				r.Use(h.adminAuth.Middleware)

				r.Post("/balance", h.SetBalance)
				r.Post("/balance/add", h.AddBalance)
				r.Post("/balance/remove", h.RemoveBalance)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
