package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func NewRouter(log *zap.Logger, a *Auth, ah *AuthHandler, ph *ProductsHandler, oh *OrdersHandler, uh *UsersHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) { ah.Register(r, a) })
		r.Route("/products", func(r chi.Router) { ph.Register(r, a) })
		r.Route("/orders", func(r chi.Router) { oh.Register(r, a) })
		r.Route("/users", func(r chi.Router) { uh.Register(r, a) })
	})

	return r
}
