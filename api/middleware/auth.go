package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/billingsync/api/responses"
	pkgAuth "github.com/angelmondragon/billingsync/pkg/auth"
	"github.com/angelmondragon/billingsync/pkg/config"
	pkgerrors "github.com/angelmondragon/billingsync/pkg/errors"
	"github.com/angelmondragon/billingsync/pkg/logger"
)

// Auth requires a bearer access token and seeds the principal for the
// billing endpoints.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			userID := claims.UserID.String()
			ctx := withPrincipal(r.Context(), principal{userID: userID, email: claims.Email})
			ctx = logg.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
