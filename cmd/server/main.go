package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"training-eval/config"
	"training-eval/internal/analytics"
	"training-eval/internal/api/handler"
	"training-eval/internal/api/middleware"
	"training-eval/internal/api/router"
	"training-eval/internal/catalog"
	"training-eval/internal/repository"
	"training-eval/internal/service"
	"training-eval/pkg/database"
	"training-eval/pkg/jwt"
	applogger "training-eval/pkg/logger"
	"training-eval/pkg/redis"
)

func main() {
	// 1. 加载配置（EVAL_CONFIG 可指定配置文件路径）
	cfg, err := config.Load(os.Getenv("EVAL_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	// 未启用时接口变量必须保持字面 nil，不能装入 (*redis.Client)(nil)
	var (
		rdb       *redis.Client
		blacklist service.TokenBlacklist
		limiter   middleware.RateLimiter
		relay     service.EventRelay
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单、限流与跨进程事件将不可用", zap.Error(err))
			rdb = nil
		}
	}
	if rdb != nil {
		blacklist, limiter, relay = rdb, rdb, rdb
	}

	// 5. 题库与统计参数
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("加载题库失败", zap.Error(err))
	}
	sessionScale, err := analytics.ScaleFromConfig(cfg.Analytics.SessionScale)
	if err != nil {
		logger.Fatal("场次评分换算表无效", zap.Error(err))
	}
	instructorScale, err := analytics.ScaleFromConfig(cfg.Analytics.InstructorScale)
	if err != nil {
		logger.Fatal("讲师评分换算表无效", zap.Error(err))
	}
	loc, err := cfg.Analytics.Location()
	if err != nil {
		logger.Fatal("统计时区无效", zap.Error(err))
	}

	// 6. 初始化 JWT 管理器与认证事件总线
	jwtMgr := jwt.NewManager(&cfg.Auth)

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	events := service.NewAuthEventBus(relay, cfg.Redis.EventsChannel, logger)
	if err := events.Start(appCtx); err != nil {
		logger.Warn("订阅认证事件频道失败，仅在本进程分发", zap.Error(err))
	}

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Deps{
		Repo:      repo,
		Catalog:   cat,
		JWT:       jwtMgr,
		Blacklist: blacklist,
		Events:    events,
		Analytics: service.AnalyticsOptions{
			SessionScale:     sessionScale,
			InstructorScale:  instructorScale,
			TrendMonths:      cfg.Analytics.TrendMonths,
			FetchConcurrency: cfg.Analytics.FetchConcurrency,
			Location:         loc,
			BaseURL:          cfg.Server.BaseURL,
		},
		Logger: logger,
	})

	admin := cfg.Auth.BootstrapAdmin
	if err := svc.Auth.EnsureAdmin(appCtx, admin.Email, admin.Password, admin.Name); err != nil {
		logger.Fatal("初始化管理员失败", zap.Error(err))
	}

	h := handler.NewHandler(cfg, svc, cat, sqlDB, logger)

	// 8. 初始化路由
	engine := router.Setup(cfg, h, router.Deps{
		JWT:       jwtMgr,
		Auth:      svc.Auth,
		Blacklist: blacklist,
		Limiter:   limiter,
		Logger:    logger,
	})

	// 9. 启动 HTTP 服务器（优雅关闭）
	// SSE 连接是长连接，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return appCtx },
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 请求 context 派生自 appCtx：先取消它，结束事件订阅与 SSE 长连接
	stopApp()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
