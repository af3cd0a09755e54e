package main

import (
	"context"

	appcontext "github.com/SeakMengs/OceanSeal/internal/app_context"
	"github.com/SeakMengs/OceanSeal/internal/auth"
	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/internal/controller"
	"github.com/SeakMengs/OceanSeal/internal/database"
	"github.com/SeakMengs/OceanSeal/internal/env"
	filestorage "github.com/SeakMengs/OceanSeal/internal/file_storage"
	"github.com/SeakMengs/OceanSeal/internal/ledger"
	"github.com/SeakMengs/OceanSeal/internal/middleware"
	"github.com/SeakMengs/OceanSeal/internal/queue"
	ratelimiter "github.com/SeakMengs/OceanSeal/internal/rate_limiter"
	"github.com/SeakMengs/OceanSeal/internal/repository"
	"github.com/SeakMengs/OceanSeal/internal/route"
	"github.com/SeakMengs/OceanSeal/internal/service"
	"github.com/SeakMengs/OceanSeal/internal/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// this function run before main
func init() {
	env.LoadEnv(".env")
}

func main() {
	cfg := config.GetConfig()

	logger := util.NewLogger(cfg.ENV)
	defer logger.Sync()

	db, err := database.ConnectReturnGormDB(cfg.DB)
	if err != nil {
		logger.Panic(err)
	}

	sqlDb, err := db.DB()
	if err != nil {
		logger.Panic(err)
	}
	defer sqlDb.Close()
	logger.Info("Database connected")

	// Custom validation
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := util.RegisterCustomValidations(v); err != nil {
			logger.Panicf("Failed to register custom validations: %v", err)
		}
	}

	identityVerifier, err := auth.NewIdentityVerifier(cfg.Auth, logger)
	if err != nil {
		if !cfg.SkipAuth() {
			logger.Panic(err)
		}
		logger.Warnf("Identity verification disabled in development: %v", err)
	}

	ledgerClient := ledger.Dial(context.Background(), cfg.Ledger, logger)
	if ledgerClient.IsConfigured(context.Background()) {
		logger.Infof("Ledger connected at %s", cfg.Ledger.RPC_URL)
	} else {
		logger.Warn("Ledger is not configured, certificates will be issued off-chain")
	}

	repo := repository.NewRepository(db, logger)
	opts := service.CertificateServiceOptions{
		Store:         repo.Certificate,
		Ledger:        ledgerClient,
		Logger:        logger,
		VerifyBaseURL: cfg.VerifyWebURL,
	}

	app := appcontext.Application{
		Config:           &cfg,
		Logger:           logger,
		Repository:       repo,
		IdentityVerifier: identityVerifier,
		Ledger:           ledgerClient,
	}

	if cfg.Minio.Enabled() {
		s3, err := filestorage.NewMinioClient(&cfg.Minio)
		if err != nil {
			logger.Errorf("Error connecting to minio, image upload disabled: %v", err)
		} else {
			app.S3 = s3
			opts.Images = filestorage.NewImageStore(s3, &cfg.Minio, logger)
		}
	}

	if cfg.RabbitMQ.Enabled() {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitMQ.GetConnectionString())
		if err != nil {
			logger.Errorf("Error connecting to RabbitMQ, certificate events disabled: %v", err)
		} else {
			defer rabbitMQ.Close()
			app.Queue = rabbitMQ
			opts.Events = rabbitMQ
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = database.ConnectRedis(cfg.Redis)
		if err != nil {
			logger.Warnf("Redis unavailable, rate limits are kept in memory: %v", err)
		} else {
			defer rdb.Close()
		}
	}

	app.CertificateService = service.NewCertificateService(opts)

	rateLimiter := ratelimiter.NewRateLimiter(cfg.RateLimiter, "global", rdb, logger)
	issueRateLimiter := ratelimiter.NewRateLimiter(cfg.IssueRateLimiter, "issue", rdb, logger)
	_middleware := middleware.NewMiddleware(&app, rateLimiter, issueRateLimiter)

	if cfg.IsProduction() {
		logger.Info("Running in production mode")
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(_middleware.Recovery)

	// docs: https://github.com/gin-contrib/cors?tab=readme-ov-file#using-defaultconfig-as-start-point
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))
	r.Use(_middleware.RateLimiterMiddleware)

	_controller := controller.NewController(&app)

	route.Index(r, _controller.Index)

	rApi := r.Group("/api")

	route.V1_Certificates(rApi, _controller.Certificate, _middleware)

	if err := r.Run("0.0.0.0:" + app.Config.Port); err != nil {
		logger.Panicf("Error running server: %v", err)
	}
}
