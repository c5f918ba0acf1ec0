package httpadapter

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// identityFromRequest returns the key guard state is tracked under: the first
// x-forwarded-for entry, then x-real-ip. Callers without either get a fresh
// uuid, which isolates them instead of pooling them under one key.
func identityFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	return uuid.NewString()
}
