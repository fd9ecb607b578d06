package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/Clark-Hu/movie-catalog/internal/domain"
)

// CookieName is the cookie that may carry the user token instead of the Authorization header.
const CookieName = "catalog_token"

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the request principal; anonymous when none was attached.
func FromContext(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

// Verifier validates a raw token.
type Verifier interface {
	Verify(raw string) (domain.Principal, error)
}

// Authenticate attaches the principal named by a valid bearer token or token cookie.
// Requests with missing or invalid tokens continue as anonymous.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := tokenFromRequest(r); raw != "" {
				if p, err := v.Verify(raw); err == nil {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser redirects anonymous requests to loginURL with the original path in "next".
func RequireUser(loginURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).Authenticated() {
				http.Redirect(w, r, LoginRedirect(loginURL, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRedirect builds loginURL?next=<next>, preserving any query loginURL already has.
func LoginRedirect(loginURL, next string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}

func tokenFromRequest(r *http.Request) string {
	const prefix = "Bearer "
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, prefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, prefix))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
