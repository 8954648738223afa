package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	api "taskmind-backend/cmd/api"
	authdelivery "taskmind-backend/internal/auth/delivery"
	authdomain "taskmind-backend/internal/auth/domain"
	authrepo "taskmind-backend/internal/auth/repository"
	authusecase "taskmind-backend/internal/auth/usecase"
	convdelivery "taskmind-backend/internal/conversation/delivery"
	convdomain "taskmind-backend/internal/conversation/domain"
	convrepo "taskmind-backend/internal/conversation/repository"
	convusecase "taskmind-backend/internal/conversation/usecase"
	"taskmind-backend/internal/notification"
	sourcedelivery "taskmind-backend/internal/source/delivery"
	sourcedomain "taskmind-backend/internal/source/domain"
	sourcerepo "taskmind-backend/internal/source/repository"
	sourceusecase "taskmind-backend/internal/source/usecase"
	appsync "taskmind-backend/internal/sync"
	"taskmind-backend/internal/task/completion"
	taskdelivery "taskmind-backend/internal/task/delivery"
	taskdomain "taskmind-backend/internal/task/domain"
	"taskmind-backend/internal/task/engine"
	taskrepo "taskmind-backend/internal/task/repository"
	"taskmind-backend/internal/task/scheduler"
	taskusecase "taskmind-backend/internal/task/usecase"
	"taskmind-backend/internal/worker"
	"taskmind-backend/pkg/ai"
	"taskmind-backend/pkg/calendar"
	"taskmind-backend/pkg/config"
	"taskmind-backend/pkg/database"
	"taskmind-backend/pkg/fcm"
	"taskmind-backend/pkg/gemini"
	"taskmind-backend/pkg/gmail"
	"taskmind-backend/pkg/imap"
	"taskmind-backend/pkg/redislock"
)

const (
	watchRenewalInterval = 12 * time.Hour
	pollInterval         = 30 * time.Minute
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.FCMToken{},
		&convdomain.Conversation{},
		&convdomain.Message{},
		&sourcedomain.SourceSetting{},
		&taskdomain.Task{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis (advisory locks for sync jobs)
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid REDIS_URL:", err)
	}
	redisClient := redis.NewClient(redisOpts)
	locker := redislock.NewLocker(redisClient)

	// Initialize repositories (dependency injection)
	userRepo := authrepo.NewUserRepository(db)
	fcmTokenRepo := authrepo.NewFCMTokenRepository(db)
	conversationRepo := convrepo.NewGormConversationRepository(db)
	sourceSettingRepo := sourcerepo.NewGormSourceSettingRepository(db)
	taskRepository := taskrepo.NewGormTaskRepository(db)

	// Token cipher for refresh tokens and IMAP credentials at rest
	cipher, err := authusecase.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize token cipher:", err)
	}

	// AI assistant (task extraction + completion judging)
	assistant, err := ai.NewAssistantService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	}, func(apiKey string) ai.AssistantService {
		return gemini.NewGeminiService(apiKey)
	})
	if err != nil {
		log.Fatal("Failed to initialize AI service:", err)
	}
	log.Printf("AI service initialized with model: %s", assistant.Model())

	// External source clients
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	calendarService := calendar.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService()

	// Core pipeline: ingest -> extraction -> reconciliation
	ingestUsecase := convusecase.NewIngestUsecase(conversationRepo, userRepo)
	taskEngine := engine.New(taskRepository)
	pipeline := appsync.NewExtractionPipeline(assistant, taskEngine, taskRepository, conversationRepo)

	// Topic names: Gmail watch wants the full resource name, the Pub/Sub
	// subscription wants the short one
	shortTopic := cfg.PubSubTopic
	if parts := strings.Split(shortTopic, "/"); len(parts) > 1 {
		shortTopic = parts[len(parts)-1]
	}
	fullTopic := fmt.Sprintf("projects/%s/topics/%s", cfg.GoogleProjectID, shortTopic)

	// Sync services
	gmailSync := appsync.NewGmailSyncService(gmailService, locker, cfg.SyncLockTTL, userRepo, sourceSettingRepo, ingestUsecase, pipeline, cipher, fullTopic)
	calendarSync := appsync.NewCalendarSyncService(calendarService, userRepo, sourceSettingRepo, ingestUsecase, pipeline, cipher, cfg.CalendarWebhookURL)
	imapSync := appsync.NewIMAPSyncService(imapService, userRepo, sourceSettingRepo, ingestUsecase, pipeline, cipher)

	// Worker pool for background sync and extraction jobs
	pool := worker.NewPool(cfg.WorkerCount)
	pool.Start()

	// FCM client (optional, reminders degrade to log-only without it)
	var notifier scheduler.ReminderNotifier
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
			notifier = notification.NewLogNotifier()
		} else {
			notifier = notification.NewDispatcher(fcmTokenRepo, fcmClient)
		}
	} else {
		log.Println("[WARN] No Firebase credentials configured, reminders are log-only")
		notifier = notification.NewLogNotifier()
	}

	// Completion checker and deadline sweep
	refresher := appsync.NewConversationRefresher(gmailService, ingestUsecase, cipher)
	checker := completion.NewChecker(conversationRepo, refresher, assistant, taskRepository)
	sweeper := scheduler.NewSweeper(taskRepository, userRepo, checker, notifier, cfg.SweepInterval)
	sweeper.Start()

	// Pub/Sub pull listener for Gmail push notifications
	var listener *notification.PubSubListener
	if cfg.GoogleProjectID != "" {
		listener, err = notification.NewPubSubListener(cfg.GoogleProjectID, shortTopic, cfg.GoogleCredentials, userRepo, gmailSync, pool)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Pub/Sub listener: %v", err)
		} else {
			go listener.Start(context.Background())
		}
	} else {
		log.Println("[WARN] GOOGLE_PROJECT_ID not configured, Pub/Sub listener disabled")
	}

	// Periodic jobs: watch renewal and polling for sources without push
	go func() {
		renewTicker := time.NewTicker(watchRenewalInterval)
		pollTicker := time.NewTicker(pollInterval)
		defer renewTicker.Stop()
		defer pollTicker.Stop()

		for {
			select {
			case <-renewTicker.C:
				ctx := context.Background()
				gmailSync.RenewWatches(ctx)
				calendarSync.RenewWatches(ctx)
			case <-pollTicker.C:
				ctx := context.Background()
				imapSync.SyncAll(ctx)
				if cfg.CalendarWebhookURL == "" {
					calendarSync.SyncAll(ctx)
				}
			}
		}
	}()

	// Use cases and HTTP handlers
	authUsecaseInstance := authusecase.NewAuthUsecase(userRepo, fcmTokenRepo, cipher, cfg)
	taskUsecaseInstance := taskusecase.NewTaskUsecase(taskRepository, sourceSettingRepo)
	sourceUsecaseInstance := sourceusecase.NewSourceUsecase(sourceSettingRepo, sourcedomain.DefaultCapabilities())

	authHandler := authdelivery.NewAuthHandler(authUsecaseInstance, gmailSync, pool)
	taskHandler := taskdelivery.NewTaskHandler(taskUsecaseInstance)
	sourceHandler := sourcedelivery.NewSourceHandler(sourceUsecaseInstance, gmailSync, calendarSync, imapSync, pool)
	ingestHandler := convdelivery.NewIngestHandler(ingestUsecase, pipeline, pool, cfg.IngestAPIKey)
	webhookHandler := api.NewWebhookHandler(listener, userRepo, calendarSync, pool, cfg.PubSubVerificationToken)

	handler := api.NewHandler(authUsecaseInstance, authHandler, taskHandler, sourceHandler, ingestHandler, webhookHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
