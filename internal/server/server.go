package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/auth"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/config"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/detect"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/queue"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/sink"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/stream"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/syncer"
	"github.com/MmohithSai/TripSync-Supabase-sub000/internal/tracking"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Queue  *queue.Queue
	Sync   *syncer.Coordinator
	Detect *detect.Manager
	Store  *detect.Store
	Log    *zap.Logger
}

func NewServer(cfg config.Config, pg *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) (*Server, error) {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	q, err := queue.Open(cfg.QueuePath)
	if err != nil {
		return nil, err
	}

	hub := stream.NewHub(redisClient, log)
	coordinator := syncer.New(q, selectSink(cfg, pg, log), hub, syncOptions(cfg), log)
	store := detect.NewStore(detect.DefaultConfig())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pg,
		Redis:  redisClient,
		Stream: hub,
		Queue:  q,
		Sync:   coordinator,
		Store:  store,
		Detect: detect.NewManager(store, coordinator, log),
		Log:    log,
	}

	registerRoutes(s)
	return s, nil
}

func selectSink(cfg config.Config, pg *pgxpool.Pool, log *zap.Logger) sink.Sink {
	if cfg.SinkBackend == "postgres" && pg != nil {
		return sink.NewPostgresSink(pg)
	}
	return sink.NewRESTSink(cfg.SupabaseURL, cfg.SupabaseKey, log)
}

func syncOptions(cfg config.Config) syncer.Options {
	opts := syncer.DefaultOptions()
	if cfg.SyncIntervalSec > 0 {
		opts.SyncInterval = time.Duration(cfg.SyncIntervalSec) * time.Second
	}
	if cfg.SyncBatchLimit > 0 {
		opts.BatchLimit = cfg.SyncBatchLimit
	}
	if cfg.QueueMaxItems > 0 {
		opts.QueueMax = cfg.QueueMaxItems
	}
	if cfg.RetentionDays > 0 {
		opts.Retention = time.Duration(cfg.RetentionDays) * 24 * time.Hour
	}
	return opts
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Detect, jwtMiddleware)
	detect.RegisterRoutes(s.App.Group("/detect"), s.Store, jwtMiddleware)
	syncer.RegisterRoutes(s.App.Group("/sync"), s.Sync, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Close releases resources owned by the server.
func (s *Server) Close() error {
	return s.Queue.Close()
}
