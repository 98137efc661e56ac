package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_merch/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	ContactPerMinute   int
}

type Handlers struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Webhook  *WebhookHandler
	Contact  *ContactHandler
}

func NewRouter(cfg RouterConfig, h Handlers, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(log))
	r.Use(MetricsMiddleware(m))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	// signature covers the raw body
	r.Post("/webhooks/stripe", h.Webhook.Stripe)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(RateLimitMiddleware(cfg.RateLimitPerMinute))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{product_id}", h.Products.Get)
		})
		r.Post("/cart/summary", h.Cart.Summary)
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", h.Checkout.Create)
			r.Get("/success", h.Checkout.Success)
		})
		r.With(RateLimitMiddleware(cfg.ContactPerMinute)).Post("/contact", h.Contact.Send)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
