package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"triarb/pkg/crypto"
)

// ControlAuth защищает управляющие endpoints (остановка бота).
//
// Токен передаётся в заголовке Authorization: Bearer <token> и
// сверяется с bcrypt-хешем из конфигурации (CONTROL_TOKEN_HASH).
// Пустой хеш запрещает управляющие запросы полностью: бот без
// настроенного токена можно остановить только сигналом.
func ControlAuth(tokenHash string, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "control endpoints disabled, set CONTROL_TOKEN_HASH", http.StatusForbidden)
				return
			}

			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !crypto.CheckTokenMatch(token, tokenHash) {
				logger.Warn("control token rejected", zap.String("remote", r.RemoteAddr))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
