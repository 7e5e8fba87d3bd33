package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/agegate"
	"github.com/EmpoweredVote/EV-Accounts/internal/tokens"
	"github.com/EmpoweredVote/EV-Accounts/internal/utils"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SessionFetcher resolves an opaque session key to its account.
type SessionFetcher interface {
	FindAccountBySessionKey(ctx context.Context, key string) (uint, error)
}

// TokenParser verifies signed tokens of a given type.
type TokenParser interface {
	ParseAs(token, tokenType string) (*tokens.Claims, error)
}

// authCredential returns the credential after scheme in the Authorization
// header, or "" when the header uses another scheme.
func authCredential(r *http.Request, scheme string) string {
	h := r.Header.Get("Authorization")
	prefix, cred, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(prefix, scheme) {
		return ""
	}
	return strings.TrimSpace(cred)
}

// TokenAuth accepts "Authorization: Token <key>" and puts the account id in
// the request context.
func TokenAuth(fetcher SessionFetcher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := authCredential(r, "Token")
			if key == "" {
				utils.WriteError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			accountID, err := fetcher.FindAccountBySessionKey(r.Context(), key)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := utils.WithAccountID(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerAuth accepts "Authorization: Bearer <access token>" and stores the
// claims and account id in the request context.
func BearerAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := authCredential(r, "Bearer")
			if raw == "" {
				utils.WriteError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			claims, err := parser.ParseAs(raw, tokens.TypeAccess)
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, tokens.ErrInvalidToken.Error())
				return
			}
			accountID, err := claims.AccountID()
			if err != nil {
				utils.WriteError(w, http.StatusUnauthorized, tokens.ErrInvalidToken.Error())
				return
			}

			ctx := utils.WithClaims(r.Context(), claims)
			ctx = utils.WithAccountID(ctx, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdultOnly must run after BearerAuth. It rejects holders whose birthdate
// claim is missing, malformed or under agegate.MinimumAge, and stores the
// age for the next handler.
func AdultOnly(now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := utils.GetClaimsFromContext(r.Context())
			if !ok {
				utils.WriteError(w, http.StatusUnauthorized, "missing token claims in context")
				return
			}

			age, err := agegate.Validate(agegate.Payload{Birthdate: claims.Birthdate}, now())
			if err != nil {
				utils.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithAge(r.Context(), age)))
		})
	}
}

// CORSMiddleware echoes allowed origins back with credentials enabled.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods",
					"GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers",
					"Content-Type, Authorization")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger writes one access log line per request.
func RequestLogger(lg *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				lg.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", chimw.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
