package auth

import (
	"net/http"
	"strings"

	pkgApp "github.com/mateusmacedo/expresso-van/pkg/application"
	chiAdapter "github.com/mateusmacedo/expresso-van/pkg/infrastructure/chi/adapter"
)

const KindUnauthenticated = "unauthenticated"

// Middleware exige "Authorization: Bearer <token>" e coloca a Identity no contexto.
func Middleware(verifier Verifier, logger pkgApp.AppLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				chiAdapter.WriteError(w, r, http.StatusUnauthorized, KindUnauthenticated, "missing bearer token")
				return
			}

			identity, err := verifier.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				pkgApp.LogDebug(r.Context(), logger, "token rejected", map[string]interface{}{"error": err.Error()})
				chiAdapter.WriteError(w, r, http.StatusUnauthorized, KindUnauthenticated, ErrInvalidToken.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
