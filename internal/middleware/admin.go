package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
)

// AdminAuth ограничивает доступ к административным операциям реестра
// по общему секретному токену.
type AdminAuth struct {
	token []byte
}

// NewAdminAuth создаёт middleware с указанным токеном. Пустой токен
// заменяется случайным: административные операции при этом фактически
// заблокированы, а не открыты всем.
func NewAdminAuth(token string) *AdminAuth {
	key := []byte(token)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = []byte(hex.EncodeToString(randomKey))
		} else {
			key = []byte("locked")
		}
	}

	return &AdminAuth{token: key}
}

// Middleware проверяет заголовок Authorization с bearer-токеном.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if !hmac.Equal([]byte(presented), a.token) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
