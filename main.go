package main

import (
	"context"
	"log"

	"payment-challenge-service/config"
	"payment-challenge-service/controllers"
	"payment-challenge-service/database"
	"payment-challenge-service/repository"
	"payment-challenge-service/routes"
	"payment-challenge-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("[PaymentChallengeService] failed to initialize logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.ConnectPostgres(cfg, logger, &repository.ChallengeAttestation{})
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	safetyNetRules, err := services.ParseSafetyNetRules(cfg.SafetyNetExclusions)
	if err != nil {
		logger.Fatal("invalid safety-net exclusion rules", zap.Error(err))
	}

	var publisher services.EventPublisher
	if cfg.AttestationSNSTopicARN != "" {
		snsPublisher, err := services.NewSNSPublisher(context.Background(), cfg.AttestationSNSTopicARN)
		if err != nil {
			logger.Fatal("failed to initialize SNS publisher", zap.Error(err))
		}
		publisher = snsPublisher
	}

	certValidator, err := services.NewAcsCertValidator()
	if err != nil {
		logger.Fatal("failed to initialize ACS certificate validator", zap.Error(err))
	}

	sessionStore := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
	attestationRepo := repository.NewGormAttestationRepo(db)
	attestor := services.NewAttestationReporter(attestationRepo, publisher, logger)
	safetyNet := services.NewSafetyNet(safetyNetRules, logger)

	sessionService := services.NewPaymentSessionService(
		sessionStore,
		services.NewInstrumentClient(cfg.InstrumentServiceURL),
		services.NewPayerAuthClient(cfg.PayerAuthServiceURL),
		attestor,
		safetyNet,
		certValidator,
		cfg.PifdBaseURL,
		logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())

	pc := &controllers.PaymentSessionController{
		Service: sessionService,
		Logger:  logger,
	}
	routes.RegisterPaymentSessionRoutes(r, pc)

	logger.Info("payment challenge service listening", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
