package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Avdeenko/Classifieds-backend/config"
	"github.com/Avdeenko/Classifieds-backend/internal/api/rest"
	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/handlers"
	"github.com/Avdeenko/Classifieds-backend/internal/api/rest/middleware"
	"github.com/Avdeenko/Classifieds-backend/internal/cache"
	"github.com/Avdeenko/Classifieds-backend/internal/db"
	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/kafka"
	"github.com/Avdeenko/Classifieds-backend/internal/kafka/producer"
	"github.com/Avdeenko/Classifieds-backend/internal/limits"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/nowpayments"
	"github.com/Avdeenko/Classifieds-backend/internal/payment"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/internal/service"
	"github.com/Avdeenko/Classifieds-backend/internal/siteconfig"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

var log *logger.Logger

func init() {
	// Загружаем переменные окружения; отсутствие .env не ошибка
	_ = godotenv.Load()

	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	// Инициализация Prometheus
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	subscriptionMetrics := metrics.NewSubscriptionMetrics(promRegistry)

	// Подключение к базе данных
	database, err := db.NewConnection(cfg.Database.GetDSN(), log)
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Кэш: Redis, если задан адрес, иначе кэш в памяти процесса
	var appCache cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		appCache = redisCache
	} else {
		log.Warn("REDIS_ADDR is not set, using in-process cache")
		appCache = cache.NewMemoryCache()
	}

	// Kafka опциональна: без брокеров события подписок не публикуются
	var subscriptionProducer producer.SubscriptionProducer
	if len(cfg.Kafka.Brokers) > 0 {
		subscriptionProducer = mustKafkaProducer(cfg.Kafka.Brokers)
		defer subscriptionProducer.Close()
	} else {
		log.Warn("KAFKA_BROKERS is not set, subscription events will not be published")
	}

	// Репозитории
	planRepo := repository.NewPostgresPlanRepository(database, log)
	methodRepo := repository.NewPostgresPaymentMethodRepository(database, log)
	subscriptionRepo := repository.NewPostgresSubscriptionRepository(database, log)
	roleLimitRepo := repository.NewPostgresRoleLimitRepository(database, log)
	siteConfigRepo := repository.NewPostgresSiteConfigRepository(database, log)

	// Сервисы
	siteConfigSvc := siteconfig.NewService(siteConfigRepo, appCache, log)
	limitsSvc := limits.NewService(roleLimitRepo, siteConfigSvc, appCache, log)
	subscriptionSvc := service.NewSubscriptionService(
		subscriptionRepo, planRepo, methodRepo,
		subscriptionProducer, subscriptionMetrics, log,
	)

	// Платежные провайдеры регистрируются только при наличии ключей
	providers := payment.NewFactory()

	if cfg.Stripe.SecretKey != "" {
		stripeProvider, err := payment.NewStripeProvider(
			cfg.Stripe.SecretKey,
			cfg.Stripe.WebhookSecret,
			cfg.Site.BaseURL,
			subscriptionSvc,
			log,
		)
		if err != nil {
			log.Fatal("Failed to initialize Stripe provider: %v", err)
		}
		providers.Register(domain.ProviderStripe, stripeProvider)
	} else {
		log.Warn("STRIPE_SECRET_KEY is not set, Stripe payments are disabled")
	}

	var gatewayClient *nowpayments.Client
	if cfg.NowPayments.APIKey != "" {
		gatewayClient, err = nowpayments.NewClient(cfg.NowPayments.APIBase, cfg.NowPayments.APIKey, appCache, log)
		if err != nil {
			log.Fatal("Failed to initialize NOWPayments client: %v", err)
		}
		providers.Register(domain.ProviderNowPayments, payment.NewNowPaymentsProvider(
			gatewayClient,
			cfg.NowPayments.IPNSecret,
			subscriptionSvc,
			log,
		))
	} else {
		log.Warn("NOWPAYMENTS_API_KEY is not set, crypto payments are disabled")
	}

	// Установка режима Gin
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Настройка маршрутизатора
	router := gin.New()
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, log)
	rest.SetupRoutes(router, rest.Handlers{
		Config:        handlers.NewConfigHandler(siteConfigSvc, log),
		Limits:        handlers.NewLimitsHandler(limitsSvc, log),
		Subscriptions: handlers.NewSubscriptionHandler(planRepo, methodRepo, subscriptionSvc, providers, subscriptionMetrics, log),
		Webhooks:      handlers.NewWebhookHandler(providers, subscriptionMetrics, log),
		Crypto:        handlers.NewCryptoHandler(planRepo, gatewayClient, cfg.Site.BaseURL, subscriptionMetrics, log),
	}, authMiddleware, appCache, promRegistry, log)

	// Создание и запуск HTTP сервера
	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// mustKafkaProducer поднимает продюсера событий подписок, с
// экспоненциальными повторами дожидаясь доступности брокеров: при
// одновременном старте с Kafka в docker-compose брокер может быть еще
// не готов.
func mustKafkaProducer(brokers []string) producer.SubscriptionProducer {
	kafkaConfig := kafka.NewConfig(brokers)
	saramaConfig := kafka.NewSaramaConfig(kafkaConfig, log)

	var syncProducer sarama.SyncProducer

	operation := func() error {
		if err := kafka.EnsureKafkaTopics(brokers, log); err != nil {
			log.Warnw("Kafka topics are not ready yet, retrying", "error", err)
			return err
		}

		p, err := sarama.NewSyncProducer(brokers, saramaConfig)
		if err != nil {
			log.Warnw("Kafka producer is not ready yet, retrying", "error", err)
			return err
		}
		syncProducer = p
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = 2 * time.Minute

	if err := backoff.Retry(operation, bo); err != nil {
		log.Fatal("Failed to connect to Kafka: %v", err)
	}

	return producer.NewKafkaSubscriptionProducer(syncProducer, log)
}
