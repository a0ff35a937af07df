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

	"cohortly/internal/api"
	"cohortly/internal/app/service"
	"cohortly/internal/app/worker"
	"cohortly/internal/common/security"
	"cohortly/internal/domain/repository"
	"cohortly/internal/judge"
	"cohortly/internal/platform/config"
	"cohortly/internal/platform/database"
	"cohortly/internal/platform/queue"
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

	// 4. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()

	// 5. Initialize Repositories
	cohortRepo := repository.NewPgCohortRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	enrollmentRepo := repository.NewPgEnrollmentRepository(database.DB)

	// 6. Judge client and scheduler
	judgeClient := newJudgeClient()
	scheduler := judge.NewScheduler(
		judgeClient,
		config.AppConfig.JudgeBatchSize,
		time.Duration(config.AppConfig.JudgePollBaseDelayMs)*time.Millisecond,
		config.AppConfig.JudgePollMaxAttempts,
	)
	classifyOpts := judge.ClassifyOptions{ExtractInlineTiming: config.AppConfig.JudgeExtractInlineTiming}

	// 7. Initialize Services
	contentService := service.NewContentService(cohortRepo, questionRepo)
	progressService := service.NewProgressService(enrollmentRepo, questionRepo, cohortRepo, database.DB)
	leaderboardService := service.NewLeaderboardService(enrollmentRepo, database.DB)
	maintenanceService := service.NewMaintenanceService(cohortRepo, questionRepo, submissionRepo, enrollmentRepo, leaderboardService, database.DB)
	runService := service.NewRunService(questionRepo, queue.RDB, config.AppConfig.RunQueueName,
		time.Duration(config.AppConfig.RunResultTTLSeconds)*time.Second)
	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, cohortRepo,
		progressService, leaderboardService, database.DB)

	// 8. Run worker (as a goroutine)
	runWorker := worker.NewRunWorker(queue.RDB, questionRepo, runService, scheduler, classifyOpts, config.AppConfig.RunQueueName)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go runWorker.Start(workerCtx)

	// 9. Router & HTTP Server
	router := api.NewRouter(contentService, progressService, leaderboardService, maintenanceService, submissionService, runService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 10. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and worker stopped gracefully.")
}

func newJudgeClient() judge.Client {
	switch config.AppConfig.JudgeBackend {
	case "piston":
		return judge.NewPistonClient(config.AppConfig.JudgeURL)
	default:
		return judge.NewJudge0Client(config.AppConfig.JudgeURL, config.AppConfig.JudgeAPIKey, config.AppConfig.JudgeAPIHost)
	}
}
