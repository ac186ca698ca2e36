package main

import (
	"context"
	"errors"
	"grievance/backend/internal/api/handler"
	"grievance/backend/internal/config"
	"grievance/backend/internal/escalation"
	"grievance/backend/internal/evidence"
	"grievance/backend/internal/grievance"
	"grievance/backend/internal/livefeed"
	"grievance/backend/internal/localization"
	"grievance/backend/internal/notify"
	"grievance/backend/internal/otp"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/telegram"
	"grievance/backend/internal/users"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Міграції (Створення таблиць)
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// 3. Redis is optional: without it codes live in memory and the feed stays local.
	if cfg.RedisAddr == "" {
		log.Println("Database connection established, migrations complete. Redis disabled.")
		return db, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("WARN: Redis at %s unavailable, continuing without it: %v", cfg.RedisAddr, err)
		_ = rdb.Close()
		return db, nil
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Grievance Cell Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET не встановлено!")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db)

	loc, err := localization.Default()
	if err != nil {
		log.Fatalf("Failed to load locales: %v", err)
	}

	// 2. Сповіщення: пошта, жива стрічка і Telegram
	hub := livefeed.NewHub()
	dispatchers := notify.Multi{}
	// акаунти отримують лише пошту: коди входу не мають потрапляти в Redis чи стрічку
	var mail notify.Dispatcher = notify.Nop{}
	if cfg.SMTPHost != "" {
		mailer := notify.NewMailer(cfg, loc)
		dispatchers = append(dispatchers, mailer)
		mail = mailer
	} else {
		log.Println("WARN: SMTP_HOST not set, mail notifications disabled")
	}

	var codes otp.Store = otp.NewMemoryStore()
	if rdb != nil {
		dispatchers = append(dispatchers, notify.NewRedisPublisher(rdb))
		codes = otp.NewRedisStore(rdb)
		go hub.Listen(ctx, rdb, notify.Channel)
	} else {
		dispatchers = append(dispatchers, hub)
	}

	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			log.Fatalf("Не вдалося запустити Telegram-бота: %v", err)
		}
		dispatchers = append(dispatchers, telegram.NewAlerter(bot, cfg.TelegramAdminChatID, loc))
		go telegram.Listen(ctx, bot, s, cfg.TelegramAdminChatID)
	}

	// 3. Сховище доказів
	var store grievance.EvidenceStore
	ev, err := evidence.NewStore(cfg)
	if err != nil {
		log.Fatalf("Failed to set up evidence storage: %v", err)
	}
	if ev != nil {
		if err := ev.EnsureBucket(ctx); err != nil {
			log.Fatalf("Failed to prepare evidence bucket: %v", err)
		}
		store = ev
	} else {
		log.Println("WARN: MINIO_ENDPOINT not set, evidence uploads are ignored")
	}

	// 4. Сервіси
	grievances := grievance.NewService(s, dispatchers, store)
	accounts := users.NewService(s, codes, mail, cfg.OTPTTL)
	sweeper := escalation.NewSweeper(s, grievances)

	// 5. Запуск основних Goroutines
	go hub.Run(ctx)                             // Жива стрічка
	go sweeper.Run(ctx, cfg.EscalationInterval) // Ескалація прострочених скарг

	// 6. Налаштування Gin та роутингу
	r := gin.Default()
	h := handler.NewHandler(grievances, accounts, sweeper, hub, s, cfg.JWTSecret, cfg.JWTTTL)
	h.RegisterRoutes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
	grievances.Wait()
	accounts.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
}
