package identity

import (
	"net/http"
	"strings"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
)

// Middleware verifies the "Authorization: Bearer <idToken>" header against
// the auth provider and injects the resolved Identity into the request
// context. Absence or invalidity of the credential yields 401.
func Middleware(verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				core.WriteError(w, core.ErrUnauthorized)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				core.WriteError(w, core.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetToContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
