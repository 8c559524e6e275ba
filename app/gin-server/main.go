package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/MKA06/luron-voice/config"
	"github.com/MKA06/luron-voice/internal/api/handlers"
	"github.com/MKA06/luron-voice/internal/api/middleware"
	"github.com/MKA06/luron-voice/internal/api/routes"
	"github.com/MKA06/luron-voice/internal/billing"
	"github.com/MKA06/luron-voice/internal/bookings"
	"github.com/MKA06/luron-voice/internal/cache"
	"github.com/MKA06/luron-voice/internal/email"
	"github.com/MKA06/luron-voice/internal/events"
	"github.com/MKA06/luron-voice/internal/logger"
	"github.com/MKA06/luron-voice/internal/postcall"
	"github.com/MKA06/luron-voice/internal/providers/gcal"
	"github.com/MKA06/luron-voice/internal/providers/llm"
	"github.com/MKA06/luron-voice/internal/providers/stt"
	"github.com/MKA06/luron-voice/internal/providers/tts"
	"github.com/MKA06/luron-voice/internal/relay"
	mongorepo "github.com/MKA06/luron-voice/internal/repositories/mongo"
	pgrepo "github.com/MKA06/luron-voice/internal/repositories/postgres"
	"github.com/MKA06/luron-voice/internal/services"
	"github.com/MKA06/luron-voice/internal/storage"
	"github.com/MKA06/luron-voice/internal/tools"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	settings := config.LoadSettings()
	ctx := context.Background()

	// Datastores
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongo init failed")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Warn("mongo index creation failed")
	}
	log.Info("mongo connected")

	mongoDBName := os.Getenv("MONGO_DB")
	if mongoDBName == "" {
		mongoDBName = "luronvoice"
	}
	mongoDB := config.MongoClient.Database(mongoDBName)

	// Repositories and services
	agentRepo := pgrepo.NewAgentRepo(config.PostgresDB)
	callRepo := pgrepo.NewCallRepo(config.PostgresDB)
	profileRepo := pgrepo.NewProfileRepo(config.PostgresDB)
	credRepo := pgrepo.NewCredentialRepo(config.PostgresDB)
	turnRepo := mongorepo.NewTurnRepo(mongoDB)

	redisCache := cache.NewRedisCache(config.RedisClient)
	agentSvc := services.NewAgentService(agentRepo, redisCache)
	callSvc := services.NewCallService(callRepo)
	publisher := events.NewPublisher(config.RedisClient)

	// Real-time providers
	sttDialer := &stt.DeepgramDialer{APIKey: settings.DeepgramAPIKey}
	ttsDialer := &tts.ElevenLabsDialer{APIKey: settings.ElevenLabsAPIKey, DefaultVoiceID: settings.DefaultVoiceID}
	llmProvider := llm.NewOpenAIProvider(settings.OpenAIAPIKey, settings.OpenAIModel, 0.7)

	// Tools
	calendars := gcal.NewProvider(credRepo, settings.GoogleClientID, settings.GoogleClientSecret, log.WithField("component", "gcal"))
	bookingAPI := bookings.NewSquareClient(credRepo, settings.SquareClientID, settings.SquareClientSecret, settings.SquareSandbox, log.WithField("component", "square"))
	mailer := email.NewResendMailer(settings.ResendAPIKey, settings.EmailFrom)

	registry := tools.NewRegistry(
		&tools.AvailabilityTool{Calendars: calendars},
		&tools.MeetingTool{Calendars: calendars},
		&tools.BookingAvailabilityTool{API: bookingAPI},
		&tools.CreateBookingTool{API: bookingAPI},
		&tools.WeatherTool{},
		&tools.EndCallTool{Mailer: mailer, NotifyTo: settings.NotifyEmail},
	)

	// Post-call collaborators, all optional: a missing credential disables
	// the feature instead of blocking boot.
	var analyzer llm.Analyzer
	if settings.VertexProjectID != "" {
		v, err := llm.NewVertexGemini(ctx, settings.VertexProjectID, settings.VertexLocation, settings.VertexModel)
		if err != nil {
			log.WithError(err).Warn("vertex init failed, call analysis disabled")
		} else {
			analyzer = v
		}
	}

	var transcriber stt.BatchTranscriber
	if g, err := stt.NewGoogleSpeech(ctx); err != nil {
		log.WithError(err).Warn("speech client init failed, transcript fallback disabled")
	} else {
		transcriber = g
	}

	var uploader storage.Uploader
	if settings.GCSBucket != "" {
		u, err := storage.NewGCSUploader(ctx, settings.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("gcs init failed, recordings disabled")
		} else {
			uploader = u
		}
	}

	var usage billing.UsagePoster
	if settings.StripeSecretKey != "" {
		usage = billing.NewStripeUsage(settings.StripeSecretKey, settings.StripeMeterName)
	}

	processor := postcall.NewProcessor(
		callSvc, profileRepo, turnRepo,
		analyzer, transcriber, uploader, usage,
		log.WithField("component", "postcall"),
	)

	// Call sessions
	sessions := relay.NewRegistry()
	relayDeps := relay.Deps{
		Log:       log.WithField("component", "relay"),
		STT:       sttDialer,
		TTS:       ttsDialer,
		LLM:       llmProvider,
		Tools:     registry,
		Publisher: publisher,
		Turns:     turnRepo,
	}

	// HTTP
	twilioHandler := handlers.NewTwilioHandler(agentSvc, callSvc, profileRepo, log.WithField("component", "twilio"))
	mediaHandler := handlers.NewMediaHandler(agentSvc, callSvc, sessions, relayDeps, processor, log.WithField("component", "media"))
	callHandler := handlers.NewCallHandler(callSvc)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	routes.RegisterRoutes(r, routes.Deps{
		Twilio: twilioHandler,
		Media:  mediaHandler,
		Call:   callHandler,
	})

	log.WithField("port", settings.Port).Info("server starting")
	if err := r.Run(":" + settings.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
