package rest

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// RouterConfig configures the HTTP handler stack.
type RouterConfig struct {
	// RateLimit is the sustained requests per second for /predict. Zero disables limiting.
	RateLimit float64
	Burst     int
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// NewRouter assembles the routes and middleware into a single handler.
func NewRouter(health *HealthHandler, predict *PredictHandler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	health.RegisterRoutes(mux)

	predictMux := http.NewServeMux()
	predict.RegisterRoutes(predictMux)
	var predictHandler http.Handler = predictMux
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		predictHandler = RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))(predictHandler)
	}
	mux.Handle("/predict", predictHandler)

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	return Chain(mux,
		func(h http.Handler) http.Handler {
			return otelhttp.NewHandler(h, "titanic-api",
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return r.Method + " " + r.URL.Path
				}),
			)
		},
		RequestID(),
		Logging(logger),
		Recover(logger),
	)
}
