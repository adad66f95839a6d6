package api

import (
	"net/http"
	"time"

	"quizarena/internal/api/handler"
	"quizarena/internal/api/middleware"
	"quizarena/internal/app/service"
	"quizarena/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	authService *service.AuthService,
	contestService *service.ContestService,
	participationService *service.ParticipationService,
	leaderboardService *service.LeaderboardService,
	userService *service.UserService,
	prizeService *service.PrizeService,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer token when present and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	// Per-IP budget across the whole API; auth and join carry tighter ones.
	r.Use(middleware.RateLimiter(100, 15*time.Minute))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authLimiter := middleware.RateLimiter(5, 15*time.Minute)
	joinLimiter := middleware.RateLimiter(10, time.Hour)

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (public, tight limit against credential stuffing)
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", func(authRouter chi.Router) {
			authRouter.Use(authLimiter)
			authHandler.RegisterRoutes(authRouter)
		})

		// Contest routes (listing/details public, play authenticated)
		contestHandler := handler.NewContestHandler(contestService, participationService, leaderboardService, userService, joinLimiter)
		v1.Route("/contests", contestHandler.RegisterRoutes)

		// User routes (authenticated)
		userHandler := handler.NewUserHandler(userService)
		v1.Route("/users", userHandler.RegisterRoutes)

		// Admin routes
		adminHandler := handler.NewAdminHandler(contestService, participationService, userService, prizeService)
		v1.Route("/admin", adminHandler.RegisterRoutes)
	})

	return r
}
