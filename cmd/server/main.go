package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wms-backend/internal/apperr"
	"wms-backend/internal/audit"
	"wms-backend/internal/auth"
	"wms-backend/internal/config"
	"wms-backend/internal/database"
	"wms-backend/internal/inbound"
	"wms-backend/internal/lock"
	"wms-backend/internal/logger"
	"wms-backend/internal/storage"
	"wms-backend/internal/warehouse"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()
	for _, w := range cfg.Warnings {
		zlog.Warn(w)
	}

	db, err := database.Init(cfg, zlog)
	if err != nil {
		zlog.Fatal("database init failed", zap.Error(err))
	}

	locker, closeLocker := newLocker(cfg, zlog)
	defer closeLocker()

	warehouses := warehouse.NewService(db, locker, zlog)
	topology := storage.NewService(db, warehouses, zlog)
	receipts := inbound.NewService(db, warehouses, zlog)

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler(zlog),
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	// Warehouse configuration
	protected.Get("/warehouses/:id/config", warehouse.GetConfigHandler(warehouses))
	protected.Put("/warehouses/:id/config", auth.RequireRole(auth.RoleAdmin, auth.RoleManager), warehouse.UpsertConfigHandler(warehouses))
	protected.Get("/system/config", warehouse.GetSystemConfigHandler(warehouses))
	protected.Put("/system/config", auth.RequireRole(auth.RoleAdmin), warehouse.UpsertSystemConfigHandler(warehouses))

	// Racks & bins
	protected.Get("/warehouses/:id/racks", storage.ListRacksHandler(topology))
	protected.Post("/racks", storage.CreateRackHandler(topology))
	protected.Get("/racks/:id", storage.GetRackHandler(topology))
	protected.Put("/racks/:id", storage.UpdateRackHandler(topology))
	protected.Delete("/racks/:id", auth.RequireRole(auth.RoleAdmin), storage.DeleteRackHandler(topology))
	protected.Get("/racks/:id/bins", storage.ListBinsHandler(topology))
	protected.Post("/racks/:id/bins", storage.CreateBinHandler(topology))
	protected.Put("/bins/:id", storage.UpdateBinHandler(topology))
	protected.Delete("/bins/:id", auth.RequireRole(auth.RoleAdmin), storage.DeleteBinHandler(topology))
	protected.Post("/bins/:id/crate", storage.PlaceCrateHandler(topology))

	// Crates
	protected.Get("/crates", storage.ListCratesHandler(topology))
	protected.Post("/crates", storage.CreateCrateHandler(topology))
	protected.Post("/crates/bulk", storage.BulkCreateCratesHandler(topology))

	// Goods in
	in := protected.Group("/inbound")
	in.Get("/receipts", inbound.ListReceiptsHandler(receipts))
	in.Post("/receipts", inbound.CreateReceiptHandler(receipts))
	in.Post("/receipts/import", inbound.ImportReceiptHandler(receipts))
	in.Get("/receipts/:id", inbound.GetReceiptHandler(receipts))
	in.Put("/receipts/:id/status", inbound.UpdateStatusHandler(receipts))
	in.Post("/receipts/:id/auto-allocate", inbound.AutoAllocateHandler(receipts))
	in.Patch("/lines/:id", inbound.UpdateLineHandler(receipts))
	in.Post("/lines/:id/reassign", inbound.ReassignLineHandler(receipts))
	in.Post("/lines/:id/clear", inbound.ClearLineHandler(receipts))
	in.Get("/kpis", inbound.KPIsHandler(receipts))

	// Audit logs
	protected.Get("/audit-logs", auth.RequireRole(auth.RoleAdmin, auth.RoleManager), audit.ListAuditLogsHandler(db))

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			zlog.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
}

// newLocker picks the Redis lock when REDIS_ADDR is set so sequence consumption is
// serialised across replicas.
func newLocker(cfg *config.Config, zlog *zap.Logger) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		zlog.Info("using in-process sequence lock")
		return lock.NewKeyedMutex(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Fatal("redis unreachable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	zlog.Info("using redis sequence lock", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedisLocker(client, cfg.SequenceLockTTL, zlog.Named("lock")), func() {
		if err := client.Close(); err != nil {
			zlog.Warn("redis close failed", zap.Error(err))
		}
	}
}
