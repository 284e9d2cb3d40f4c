package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"persona-chat-api/internal/chat"
	"persona-chat-api/internal/core/auth"
	"persona-chat-api/internal/core/cache"
	"persona-chat-api/internal/core/config"
	"persona-chat-api/internal/core/database"
	"persona-chat-api/internal/core/logger"
	"persona-chat-api/internal/core/server"
	"persona-chat-api/internal/domain"
	"persona-chat-api/internal/gateway/openai"
	"persona-chat-api/internal/repo"
	"persona-chat-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 必填配置启动时一次性校验，缺了直接退（不静默降级）
	if err := cfg.Validate(); err != nil {
		log.Fatal("config invalid", zap.Error(err))
	}

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.User{}, &domain.Persona{}, &domain.Chat{}, &domain.Message{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer,
		time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)

	// redis 可选：没配就不走缓存
	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer c.Close()
	}

	// LLM 网关：实例持有自己的连接，退出前释放
	gw, err := openai.New(openai.Config{
		BaseURL:     cfg.OpenAI.BaseURL,
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		TimeoutSec:  cfg.OpenAI.TimeoutSec,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	})
	if err != nil {
		log.Fatal("openai gateway init failed", zap.Error(err))
	}
	defer gw.Close()

	dataDir := cfg.Chat.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	users := repo.NewUserRepo(db)
	personas := repo.NewPersonaRepo(db)
	chats := repo.NewChatRepo(db)
	messages := repo.NewMessageRepo(db)
	training := chat.NewTrainingStore(dataDir+"/training", c)
	chatSvc := chat.NewService(chats, messages, personas, gw, training, log).
		WithHistoryLimit(cfg.Chat.HistoryLimit)

	r := router.NewAPIEngine(router.Deps{
		Log:      log,
		JWTer:    jwter,
		Users:    users,
		Personas: personas,
		Chats:    chats,
		Messages: messages,
		Chat:     chatSvc,
		Training: training,
		Cache:    c,
		DataDir:  dataDir,
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start FAILED", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
