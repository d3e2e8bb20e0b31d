package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/hangout-app/hangout/internal/rest"
	"github.com/hangout-app/hangout/pkg/user"
)

// RequireUser rejects anonymous requests: API calls get 401, pages are sent to
// the login page with the requested path in "next".
func RequireUser(loginPage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := user.CurrentId(r.Context()); err == nil {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/") {
				rest.WriteError(w, http.StatusUnauthorized, "Sign in required", "")
				return
			}
			target := loginPage + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusFound)
		})
	}
}

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
