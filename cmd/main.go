package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gokitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	gokitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jnikolaeva/eshop-common/httpkit"
	postgresadapter "github.com/jnikolaeva/eshop-common/postgres"

	"github.com/krishimitra/authservice/internal/auth/application"
	"github.com/krishimitra/authservice/internal/auth/infrastructure/filestore"
	"github.com/krishimitra/authservice/internal/auth/infrastructure/postgres"
	usertransport "github.com/krishimitra/authservice/internal/auth/infrastructure/transport"
	"github.com/krishimitra/authservice/internal/probes"
)

const (
	appName     = "authservice"
	defaultPort = "3000"

	storeDriverFile     = "file"
	storeDriverPostgres = "postgres"
)

type config struct {
	serverAddr     string
	storeDriver    string
	usersFile      string
	rateLimitRPS   int
	rateLimitBurst int
}

func parseConfig() config {
	return config{
		serverAddr:     ":" + envString("APP_PORT", defaultPort),
		storeDriver:    envString("STORE_DRIVER", storeDriverFile),
		usersFile:      envString("USERS_FILE", filestore.DefaultPath),
		rateLimitRPS:   envAsInt("RATE_LIMIT_RPS", 0),
		rateLimitBurst: envAsInt("RATE_LIMIT_BURST", 20),
	}
}

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "@timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}
	cfg := parseConfig()

	errorLogger := gokitlog.NewJSONLogger(gokitlog.NewSyncWriter(os.Stderr))
	errorLogger = level.NewFilter(errorLogger, level.AllowDebug())
	errorLogger = gokitlog.With(errorLogger,
		"appName", appName,
		"@timestamp", gokitlog.DefaultTimestampUTC,
	)

	repository, closeRepository, err := newRepository(cfg)
	if err != nil {
		logger.Fatal(err.Error())
	}
	defer closeRepository()
	logger.WithFields(logrus.Fields{"driver": cfg.storeDriver}).Info("user store initialized")

	identityService := application.NewIdentityService(repository)
	authService := application.NewAuthService(repository)

	metrics := httpkit.NewMetricsHolder(gokitprometheus.NewCounterFrom(prometheus.CounterOpts{
		Namespace: "auth",
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method", "endpoint", "status_code"}),
		gokitprometheus.NewHistogramFrom(prometheus.HistogramOpts{
			Namespace: "auth",
			Name:      "request_latency_seconds",
			Help:      "Total duration of request in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}))

	apiServer := usertransport.NewHttpServer(errorLogger, identityService, authService, metrics, newLimiter(cfg))

	readiness := &probes.Readiness{}
	mux := http.NewServeMux()
	mux.Handle("/", apiServer.MakeHandler(""))
	mux.Handle("/ready", readiness.MakeReadyHandler())
	mux.Handle("/live", probes.MakeLiveHandler())
	mux.Handle("/metrics", promhttp.Handler())

	srv := startServer(cfg.serverAddr, mux, logger)

	waitForShutdown(srv, readiness)
	logger.Info("shutting down")
}

func newRepository(cfg config) (application.Repository, func(), error) {
	switch cfg.storeDriver {
	case storeDriverFile:
		return filestore.New(cfg.usersFile), func() {}, nil
	case storeDriverPostgres:
		connConfig, err := postgresadapter.ParseEnvConfig(appName)
		if err != nil {
			return nil, nil, err
		}
		connectionPool, err := postgresadapter.NewConnectionPool(connConfig)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(connectionPool), connectionPool.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown store driver %q", cfg.storeDriver)
	}
}

func newLimiter(cfg config) *rate.Limiter {
	if cfg.rateLimitRPS <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.rateLimitRPS), cfg.rateLimitBurst)
}

func startServer(serverAddr string, handler http.Handler, logger *logrus.Logger) *http.Server {
	srv := &http.Server{Addr: serverAddr, Handler: handler}

	go func() {
		logger.WithFields(logrus.Fields{"url": serverAddr}).Info("starting the server")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal(err)
		}
	}()

	return srv
}

func waitForShutdown(srv *http.Server, readiness *probes.Readiness) {
	killSignalChan := make(chan os.Signal, 1)
	signal.Notify(killSignalChan, os.Interrupt, syscall.SIGTERM)

	<-killSignalChan
	readiness.SetReady(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func envString(env, fallback string) string {
	e := os.Getenv(env)
	if e == "" {
		return fallback
	}
	return e
}

func envAsInt(env string, fallback int) int {
	v := envString(env, "")
	if value, err := strconv.Atoi(v); err == nil {
		return value
	}
	return fallback
}
