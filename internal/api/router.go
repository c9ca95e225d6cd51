package api

import (
	"log/slog"
	"net/http"
	"time"

	"lending-engine/internal/api/handler"
	mw "lending-engine/internal/api/middleware"
	"lending-engine/internal/config"
	"lending-engine/internal/domain/book"
	"lending-engine/internal/domain/loan"
	"lending-engine/internal/domain/member"

	_ "lending-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(lendingService loan.LendingService, catalogService book.CatalogService, memberService member.MemberService, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupMemberRoutes(router, cfg, memberService, lendingService, logger)
	setupBookRoutes(router, cfg, catalogService, logger)
	setupLoanRoutes(router, lendingService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupLoanRoutes(router *chi.Mux, lendingService loan.LendingService, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(lendingService, logger)
	authHandler := handler.NewAuthHandler(*cfg, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.RequestLoan)
		r.Get("/", loanHandler.ListLoans)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Post("/approve", loanHandler.ApproveLoan)
			r.Post("/reject", loanHandler.RejectLoan)
			r.Post("/return", loanHandler.ReturnLoan)
		})
	})
}

func setupBookRoutes(router chi.Router, cfg *config.Config, svc book.CatalogService, logger *slog.Logger) {
	h := handler.NewBookHandler(svc, logger)

	router.Route("/books", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.AddBook)
		r.Get("/", h.ListBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", h.GetBook)
			r.Put("/", h.UpdateBook)
			r.Delete("/", h.RemoveBook)
		})
	})
}

func setupMemberRoutes(router chi.Router, cfg *config.Config, svc member.MemberService, lendingService loan.LendingService, logger *slog.Logger) {
	h := handler.NewMemberHandler(svc, lendingService, logger)

	router.Route("/members", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.RegisterMember)
		r.Get("/", h.ListMembers)
		r.Route("/{memberID}", func(r chi.Router) {
			r.Get("/", h.GetMember)
			r.Delete("/", h.RemoveMember)
			r.Put("/contact", h.UpdateMemberContact)
			r.Get("/loans", h.ListMemberLoans)
		})
	})
}
