package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Templasan/MarketPlacer/cache"
	"github.com/Templasan/MarketPlacer/common/auth"
	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/common/logger"
	cmw "github.com/Templasan/MarketPlacer/common/middleware"
	"github.com/Templasan/MarketPlacer/controllers"
	"github.com/Templasan/MarketPlacer/database"
	"github.com/Templasan/MarketPlacer/events"
	"github.com/Templasan/MarketPlacer/kafka"
	awspkg "github.com/Templasan/MarketPlacer/pkg/aws"
	"github.com/Templasan/MarketPlacer/pkg/metrics"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/Templasan/MarketPlacer/repository/memory"
	"github.com/Templasan/MarketPlacer/routes"
	"github.com/Templasan/MarketPlacer/services"
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "marketplacer"

// dependencies are the infrastructure pieces the HTTP layer is built on.
type dependencies struct {
	Store      repository.Store
	HomeCache  cache.Cache
	Publisher  events.Publisher
	Presigner  services.ImagePresigner
	Tokens     *auth.TokenManager
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
	CloudWatch *awspkg.MetricsClient
}

func main() {
	ctx := context.Background()
	log := logger.Initialize(os.Getenv("APP_ENV"), nil)
	defer log.Sync()

	cfg, err := LoadConfig(ctx, log)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	var awsCfg *sdkaws.Config
	if cfg.needsAWS() {
		c, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		awsCfg = &c
	}

	if cfg.CloudWatchLogs != "" && awsCfg != nil {
		if sink, err := awspkg.NewLogWriter(ctx, *awsCfg, cfg.CloudWatchLogs, serviceName); err != nil {
			log.Warn("CloudWatch Logs unavailable, logging to console only", zap.Error(err))
		} else {
			log = logger.Initialize(cfg.Env, sink)
		}
	}
	zap.ReplaceGlobals(log)

	deps, cleanup, err := buildDependencies(ctx, cfg, awsCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, limiter := newRouter(cfg, log, deps)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("MarketPlacer starting", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}

func (c *Config) needsAWS() bool {
	return c.SNSTopicArn != "" || c.S3Bucket != "" || c.CloudWatchEnabled || c.CloudWatchLogs != ""
}

// buildDependencies connects storage, cache and event sinks. The returned
// cleanup closes whatever was opened.
func buildDependencies(ctx context.Context, cfg *Config, awsCfg *sdkaws.Config, log *zap.Logger) (dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := dependencies{Registry: prometheus.NewRegistry()}
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.Metrics = metrics.New(deps.Registry)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return deps, cleanup, err
	}
	deps.Tokens = tokens

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		log.Warn("Using in-memory storage; data is lost on restart")
		deps.Store = memory.NewStore()
	default:
		db, err := database.ConnectPostgres(log, cfg.Postgres, database.Models()...)
		if err != nil {
			return deps, cleanup, err
		}
		closers = append(closers, func() {
			if err := database.Close(db); err != nil {
				log.Warn("Failed to close database", zap.Error(err))
			}
		})
		deps.Store = repository.NewGormStore(db)
	}

	deps.HomeCache = cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, log, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, using in-process home cache", zap.Error(err))
		} else {
			closers = append(closers, func() { _ = client.Close() })
			deps.HomeCache = cache.NewRedisCache(client, serviceName+":home")
		}
	}

	var sinks events.Fanout
	if cfg.SNSTopicArn != "" && awsCfg != nil {
		sinks = append(sinks, events.NewSNSPublisher(awspkg.NewSNSClient(*awsCfg), cfg.SNSTopicArn))
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				log.Warn("Failed to close Kafka producer", zap.Error(err))
			}
		})
		sinks = append(sinks, producer)
	}
	deps.Publisher = sinks

	if cfg.S3Bucket != "" && awsCfg != nil {
		deps.Presigner = awspkg.NewImagePresigner(*awsCfg, cfg.S3Bucket, cfg.S3PresignExpiry)
	}
	if awsCfg != nil {
		deps.CloudWatch = awspkg.NewMetricsClient(*awsCfg, cfg.MetricsNamespace, cfg.CloudWatchEnabled)
	}

	return deps, cleanup, nil
}

func newRouter(cfg *Config, log *zap.Logger, deps dependencies) (*gin.Engine, *cmw.RateLimiter) {
	clock := services.SystemClock{}
	locks := services.NewCartLocks()

	catalogService := services.NewCatalogService(deps.Store, deps.HomeCache, deps.Presigner, clock, log)
	cartService := services.NewCartService(deps.Store, locks, clock, log)
	checkoutService := services.NewCheckoutService(deps.Store, locks, deps.Publisher, deps.Metrics, clock, log)
	orderService := services.NewOrderService(deps.Store, deps.Publisher, deps.Metrics, clock, log)
	homeService := services.NewHomeService(deps.Store, deps.HomeCache, deps.Metrics, clock, log)
	userService := services.NewUserService(deps.Store, deps.Tokens, clock, log)

	limiter := cmw.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 5*time.Minute)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cmw.RequestID())
	r.Use(cmw.RequestLogger(log))
	r.Use(cmw.SecurityHeaders())
	r.Use(cmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(cmw.RateLimitMiddleware(limiter))
	r.Use(cmw.PrometheusMetrics(deps.Metrics))
	r.Use(cmw.CloudWatchMetrics(deps.CloudWatch, serviceName))
	r.Use(cmw.Timeout(30 * time.Second))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, routes.Controllers{
		Products: controllers.NewProductController(catalogService),
		Carts:    controllers.NewCartController(cartService, checkoutService),
		Orders:   controllers.NewOrderController(orderService, checkoutService),
		Users:    controllers.NewUserController(userService, cfg.Env == "production"),
		Home:     controllers.NewHomeController(homeService),
	}, deps.Tokens, userService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(metrics.HandlerFor(deps.Registry)))

	return r, limiter
}
