package middleware

import "net/http"

// SecureHeaders sets response hardening headers. Every body is JSON or a
// download carrying pay data, so nothing is cached or framed and no content
// may load anything.
func SecureHeaders(isProd bool) func(http.Handler) http.Handler {
	static := map[string]string{
		"X-Content-Type-Options":       "nosniff",
		"X-Frame-Options":              "DENY",
		"Referrer-Policy":              "no-referrer",
		"Cache-Control":                "no-store",
		"Pragma":                       "no-cache",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Cross-Origin-Resource-Policy": "same-origin",
	}
	if isProd {
		static["Strict-Transport-Security"] = "max-age=63072000; includeSubDomains"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			for name, value := range static {
				headers.Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
