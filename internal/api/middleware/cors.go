package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
)

// CORS выставляет заголовки для браузерного UI.
//
// Разрешённые origins берутся из ALLOWED_ORIGINS (через запятую),
// тот же список использует WebSocket upgrader. Пустое значение или
// "*" разрешает всё - режим локального развертывания.
func CORS() mux.MiddlewareFunc {
	allowAll := true
	allowed := make(map[string]struct{})

	if env := os.Getenv("ALLOWED_ORIGINS"); env != "" && env != "*" {
		allowAll = false
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowed[origin] = struct{}{}
			}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin == "":
				// curl, мониторинг - без CORS заголовков
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			default:
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
