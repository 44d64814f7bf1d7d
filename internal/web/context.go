package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/cubetab/internal/audit"
	"github.com/JonMunkholm/cubetab/internal/web/middleware"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx for audit
// records. RemoteAddr has already been resolved by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr
	if addr, ok := middleware.ClientAddr(r.RemoteAddr); ok {
		ip = addr.String()
	}
	return audit.WithClient(ctx, ip, r.UserAgent())
}

func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r)))
	})
}
