package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// The API only serves the local network, so any origin may call it.
var corsHeaders = [][2]string{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS"},
	{"Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin"},
	{"Access-Control-Max-Age", "86400"},
}

func setCORS(set func(name, value string)) {
	for _, h := range corsHeaders {
		set(h[0], h[1])
	}
}

// corsMiddleware adds CORS headers to every registered operation.
// Preflights never reach huma; handlePreflight answers them on the mux.
func corsMiddleware(ctx huma.Context, next func(huma.Context)) {
	setCORS(ctx.SetHeader)
	next(ctx)
}

func handlePreflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w.Header().Set)
	w.WriteHeader(http.StatusNoContent)
}

// requestLogger logs each operation once it completes. The event stream
// stays open for the life of a client, so it is logged when it opens and
// again with its duration when it closes.
func requestLogger(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		op := ctx.Operation()
		attrs := []slog.Attr{
			slog.String("op", op.OperationID),
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}

		stream := op.OperationID == eventsOperationID
		if stream {
			logger.LogAttrs(ctx.Context(), slog.LevelDebug, "Event stream opened", attrs...)
		}

		next(ctx)

		attrs = append(attrs, slog.Duration("duration", time.Since(start)))
		if stream {
			logger.LogAttrs(ctx.Context(), slog.LevelDebug, "Event stream closed", attrs...)
			return
		}

		status := ctx.Status()
		attrs = append(attrs, slog.Int("status", status))
		logger.LogAttrs(ctx.Context(), requestLevel(ctx.Method(), status), "HTTP request completed", attrs...)
	}
}

// requestLevel keeps polling reads at debug and surfaces changes and failures.
func requestLevel(method string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == http.MethodGet:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
