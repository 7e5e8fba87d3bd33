package accounts

import (
	"github.com/EmpoweredVote/EV-Accounts/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes registers the account endpoints on r.
func SetupRoutes(r chi.Router, h *Handler, fetcher middleware.SessionFetcher) {
	r.Post("/registration/", h.Register)
	r.Post("/authorization/", h.Authorize)
	r.Post("/confirm/", h.Confirm)
	r.Post("/google-auth/", h.GoogleAuth)

	r.Post("/jwt/", h.ObtainPair)
	r.Post("/jwt/refresh/", h.Refresh)
	r.Post("/jwt/verify/", h.Verify)

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(fetcher))
		r.Get("/me/", h.Me)
	})
}
