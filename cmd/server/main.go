// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"storyforge/internal/config"
	"storyforge/internal/handler"
	"storyforge/internal/middleware"
	"storyforge/internal/repository"
	"storyforge/internal/service"
	"storyforge/pkg/database"
	"storyforge/pkg/gateway"
	"storyforge/pkg/llm"
	"storyforge/pkg/log"
	"storyforge/pkg/token"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 初始化配置，缺少密钥时直接退出
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("配置校验失败", err)
	}
	log.Info("日志记录器初始化成功")

	// 3. 初始化游戏存储
	var (
		gameRepo repository.GameRepository
		rdb      *redis.Client
	)
	switch cfg.Session.Store {
	case "redis":
		rdb, err = database.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		gameRepo = repository.NewRedisGameRepository(rdb, cfg.Session.TTL)
	default:
		gameRepo = repository.NewMemoryGameRepository(cfg.Session.TTL)
	}

	// 4. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.Session.TokenSecret, cfg.Session.TokenTTL)
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout)
	llmClient := llm.NewClient(llm.Options{
		BaseURL:     cfg.Gateway.BaseURL,
		APIKey:      cfg.Gateway.APIKey,
		Timeout:     cfg.Gateway.Timeout,
		CountTokens: cfg.LLM.CountTokens,
	})
	gameService := service.NewGameService(gameRepo, llmClient, jwtManager)
	proxyService := service.NewProxyService(gatewayClient)

	// 5. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	// 以路由模板作为 url 标签，避免令牌进入指标
	p := ginprometheus.NewPrometheus("gin")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	p.Use(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 6. 注册路由
	catalogHandler := handler.NewCatalogHandler()
	gameHandler := handler.NewGameHandler(gameService)
	proxyHandler := handler.NewProxyHandler(proxyService)
	playHandler := handler.NewPlayHandler(gameService, jwtManager, cfg.CORS.AllowedOrigins)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/genres", catalogHandler.ListGenres)
		apiV1.GET("/quick-choices", catalogHandler.ListQuickChoices)
		apiV1.POST("/games", gameHandler.CreateGame)

		// 单局游戏路由，需要游戏令牌
		game := apiV1.Group("/game")
		game.Use(middleware.GameAuthMiddleware(jwtManager))
		{
			game.GET("", gameHandler.GetGame)
			game.PUT("/genre", gameHandler.SelectGenre)
			game.POST("/character", gameHandler.CreateCharacter)
			game.POST("/turns", gameHandler.SubmitTurn)
			game.POST("/restart", gameHandler.Restart)
		}

		// 网关代理路由，按客户端 IP 限流
		proxy := apiV1.Group("")
		proxy.Use(middleware.RateLimit(cfg.RateLimit.Rate, cfg.RateLimit.Limit))
		{
			proxy.POST("/chat-completions", proxyHandler.ChatCompletions)
			proxy.POST("/images/generations", proxyHandler.ImageGenerations)
			proxy.GET("/models", proxyHandler.ListModels)
		}
	}
	// WebSocket 游戏通道
	r.GET("/play/:token", playHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("关闭 Redis 连接失败", err)
		}
	}
	log.Info("服务已优雅关闭")
}
