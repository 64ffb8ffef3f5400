package middleware

import (
	"net/http"
	"strings"
)

// CORS allows cross-origin calls from the listed origins. "*" allows any origin.
// Preflight requests are answered with 204.
func CORS(allowed []string) func(http.Handler) http.Handler {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }

	list := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a = trim(a); a != "" {
			list = append(list, a)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := trim(r.Header.Get("Origin"))
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin != "" {
				for _, a := range list {
					if a == "*" || strings.EqualFold(a, origin) {
						h.Set("Access-Control-Allow-Origin", origin)
						h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
						h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
						h.Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Remaining, Retry-After")
						h.Set("Access-Control-Max-Age", "600")
						break
					}
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
