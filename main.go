package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskwatch/api"
	"taskwatch/checker"
	"taskwatch/notify"
	"taskwatch/storage"
)

func main() {
	godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	if connStr == "" || tasksTableName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	ctx := context.Background()
	if err := store.Ensure(ctx); err != nil {
		log.Fatalf("provision storage: %v", err)
	}

	var tasks api.Storage = store
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		ttl := 30 * time.Second
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			ttl = d
		}
		tasks = storage.NewCache(store, redis.NewClient(redisOpts), ttl)
	}

	var sink notify.Sink
	switch mode := os.Getenv("NOTIFY_MODE"); mode {
	case "desktop":
		sink = notify.DesktopSink{}
	case "queue":
		queueName := os.Getenv("ALERTS_QUEUE")
		if queueName == "" {
			log.Fatal("missing alerts queue config")
		}
		qs, err := notify.NewQueueSink(connStr, queueName)
		if err != nil {
			log.Fatalf("alerts queue: %v", err)
		}
		if err := qs.Ensure(ctx); err != nil {
			log.Fatalf("provision alerts queue: %v", err)
		}
		sink = qs
	case "", "log":
		sink = notify.LogSink{}
	default:
		log.Fatalf("unknown NOTIFY_MODE %q", mode)
	}

	broker := api.NewAlertBroker()
	chk := checker.New(tasks, sink, broker, prometheus.DefaultRegisterer)
	chk.Start()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(echoprometheus.NewMiddleware("taskwatch"))
	e.GET("/metrics", echoprometheus.NewHandler())

	logger := log.New()
	api.Register(e, tasks, chk, broker, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
