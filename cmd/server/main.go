package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizarena/internal/api"
	"quizarena/internal/app/service"
	"quizarena/internal/app/worker"
	"quizarena/internal/common/security"
	"quizarena/internal/domain/repository"
	"quizarena/internal/platform/cache"
	"quizarena/internal/platform/config"
	"quizarena/internal/platform/database"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize JWT
	security.InitJWT()
	fmt.Println("JWT initialized.")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()
	fmt.Println("Database connected.")

	// 4. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()
	fmt.Println("Redis connected.")

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	contestRepo := repository.NewPgContestRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)
	participationRepo := repository.NewPgParticipationRepository(database.DB)
	leaderboardRepo := repository.NewPgLeaderboardRepository(database.DB)
	prizeRepo := repository.NewPgPrizeRepository(database.DB)
	txRunner := repository.NewTxRunner(database.DB)

	// 6. Initialize Services
	authService := service.NewAuthService(userRepo)
	contestService := service.NewContestService(
		contestRepo,
		questionRepo,
		txRunner,
		cache.RDB,
		config.AppConfig.ContestCacheTTL,
		config.AppConfig.QuestionsPerContest,
		config.AppConfig.DefaultQuestionScore,
		config.AppConfig.MaxParticipants,
		config.AppConfig.MinParticipants,
	)
	joinLocker := cache.NewRedisJoinLocker(cache.RDB, config.AppConfig.JoinLockTTL)
	participationService := service.NewParticipationService(
		contestRepo,
		questionRepo,
		participationRepo,
		leaderboardRepo,
		txRunner,
		joinLocker,
		config.AppConfig.QuestionsPerContest,
		config.AppConfig.QuestionTimeLimit,
	)
	leaderboardService := service.NewLeaderboardService(leaderboardRepo, contestRepo)
	userService := service.NewUserService(userRepo, participationRepo, prizeRepo)
	prizeService := service.NewPrizeService(prizeRepo, userRepo, contestRepo, participationRepo)

	// 7. Initialize Status Worker (as a goroutine)
	statusWorker := worker.NewStatusWorker(cache.RDB, contestRepo, contestService)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go statusWorker.Start(workerCtx)
	fmt.Println("Status worker started.")

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, contestService, participationService, leaderboardService, userService, prizeService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal worker to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and worker stopped gracefully.")
}
