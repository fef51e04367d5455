// File: campuspark/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"campuspark/config"
	"campuspark/database"
	"campuspark/database/repository"
	"campuspark/handlers"
	"campuspark/middleware"
	"campuspark/models"
	"campuspark/routes"
	"campuspark/services/directions"
	"campuspark/services/events"
	ai "campuspark/services/intelligence"
	"campuspark/services/notification"
	"campuspark/services/push"
	"campuspark/services/realtime"
	"campuspark/services/speech"
	"campuspark/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout := config.RequestTimeout()
	httpClient := &http.Client{Timeout: timeout}

	// Storage backend.
	var (
		store    *repository.Store
		mongoCli *mongo.Client
		pgDB     *sql.DB
	)
	switch config.AppConfig.StoreBackend {
	case "postgres":
		db, err := database.NewPostgresDB(config.AppConfig.PostgresDSN)
		if err != nil {
			logger.Fatal("main: failed to connect to Postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatal("main: failed to prepare schema", zap.Error(err))
		}
		store, err = repository.NewPostgresStore(db, config.AppConfig.PostgresDSN, logger)
		if err != nil {
			logger.Fatal("main: failed to start change feed", zap.Error(err))
		}
		pgDB = db
	default:
		database.InitDB()
		mongoCli = database.MongoClient
		store = repository.NewMongoStore(database.MongoDatabase(), logger)
	}

	// Conversation context.
	var (
		contexts    ai.ContextStore
		redisTarget []*redis.Client
	)
	if config.AppConfig.RedisAddr != "" {
		client := utils.GetContextCacheClient()
		contexts = ai.NewRedisContextStore(client, config.ContextTTL())
		redisTarget = append(redisTarget, client)
	} else {
		logger.Warn("main: REDIS_ADDR not set, conversation context kept in memory")
		contexts = ai.NewMemoryContextStore()
	}

	// Natural-language fallback.
	var fallback ai.NaturalLanguageFallback
	if config.AppConfig.CompletionProvider == "gemini" {
		gemini, err := ai.NewGeminiClient(ctx, config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
		if err != nil {
			logger.Fatal("main: failed to create Gemini client", zap.Error(err))
		}
		defer gemini.Close()
		fallback = gemini
	} else {
		fallback = ai.NewCompletionClient(config.AppConfig.AIServiceURL, httpClient, logger)
	}

	engine := ai.NewReservationDialogueEngine(store.Spaces, store.Guests, contexts, fallback, logger, timeout)

	// Realtime surfaces.
	bus := events.NewBus()
	hub := push.NewHub(logger)
	announcer := speech.NewAnnouncer(speech.NewTTSClient(config.AppConfig.TTSServiceURL, httpClient), hub, logger, timeout)
	pending := realtime.NewPendingStore(logger)

	prompters := realtime.Prompters{hub}
	fcm, err := utils.FirebaseMessaging(ctx)
	if err != nil {
		logger.Fatal("main: failed to initialize Firebase", zap.Error(err))
	}
	if fcm != nil {
		notifier, err := notification.NewDefaultNotificationService(store.UserInfo, fcm, logger, timeout)
		if err != nil {
			logger.Fatal("main: failed to create notification service", zap.Error(err))
		}
		prompters = append(prompters, notifier)
	} else {
		logger.Info("main: Firebase not configured, prompts go to open sessions only")
	}

	watcher := realtime.NewOccupancyWatcher(store.Feed, pending, prompters, announcer, logger)
	responder := realtime.NewVerificationResponder(store.Spaces, pending, watcher, bus, logger, timeout)

	surface := ai.NewChatSurface(contexts, engine, hub, announcer, logger, timeout)
	unsubscribe := bus.Subscribe(surface.HandleEvent)
	defer unsubscribe()

	routeFinder := directions.NewClient(config.AppConfig.GoogleAPIKey, map[models.Entrance]string{
		models.EntranceMain: config.AppConfig.EntranceMainAddress,
		models.EntranceSide: config.AppConfig.EntranceSideAddress,
	}, httpClient)

	assistantHandler := &handlers.AssistantHandler{
		Engine:  engine,
		Spaces:  store.Spaces,
		Routes:  routeFinder,
		Speaker: announcer,
		Timeout: timeout,
	}
	if path := config.AppConfig.GoogleServiceAccountFile; path != "" {
		transcriber, err := speech.NewGoogleTranscriber(ctx, path)
		if err != nil {
			logger.Fatal("main: failed to create speech client", zap.Error(err))
		}
		defer transcriber.Close()
		assistantHandler.Transcriber = transcriber
	}
	verificationHandler := &handlers.VerificationHandler{Pending: pending, Responder: responder}
	wsHandler := &handlers.WebSocketHandler{Hub: hub, Watcher: watcher, Pending: pending}

	handlerBundle := &handlers.HandlerBundle{
		AssistantChatHandler:  assistantHandler.ChatHandler,
		AssistantVoiceHandler: assistantHandler.VoiceHandler,

		PendingVerificationHandler: verificationHandler.PendingHandler,
		RespondVerificationHandler: verificationHandler.RespondHandler,

		WebSocketHandler: wsHandler.HandleWebSocket,

		HealthHandler: handlers.HealthHandler,
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	routes.RegisterRoutes(router, handlerBundle, config.AppConfig.MaxRequestsPerMin)

	utils.StartHealthMonitor(ctx, utils.HealthTargets{
		Redis:    redisTarget,
		Mongo:    mongoCli,
		Postgres: pgDB,
	}, 30*time.Second)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		store.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("main: server is shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("main: server stopped with error", zap.Error(err))
	}

	watcher.Close()
	announcer.Close()
	hub.Close()
	if mongoCli != nil {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoCli.Disconnect(disconnectCtx)
	}
	logger.Info("main: server stopped gracefully")
}
