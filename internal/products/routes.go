// Package products hosts the product endpoints gated on the holder's age.
package products

import (
	"net/http"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes returns the /products router. Every route needs an adult
// bearer token.
func SetupRoutes(parser middleware.TokenParser, now func() time.Time) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(parser))
		r.Use(middleware.AdultOnly(now))
		r.Get("/eligibility/", EligibilityHandler)
	})

	return r
}
