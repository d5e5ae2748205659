package app

import (
	"context"
	"log"
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/controller"
	"mysql_practice_backend/internal/repository"
	"mysql_practice_backend/internal/scoring"
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/pkg/configwatcher"
	"mysql_practice_backend/pkg/database"
	"mysql_practice_backend/pkg/logger"
	"mysql_practice_backend/pkg/monitoring"
	"mysql_practice_backend/pkg/security"
	"mysql_practice_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config     *config.Config
	ConfigFile string
	Router     *gin.Engine
	DB         *gorm.DB
	Redis      *redis.Client

	services        *services
	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	question *repository.QuestionRepository
	history  *repository.HistoryRepository
	tag      *repository.TagRepository
}

type services struct {
	auth     *service.AuthService
	user     *service.UserService
	question *service.QuestionService
	tag      *service.TagService
	scoring  *service.ScoringService
	progress *service.ProgressService
	storage  *service.StorageService
	report   *service.ReportService
	autoTag  *service.AutoTaggingService
	engine   *scoring.Engine
}

type controllers struct {
	auth       *controller.AuthController
	question   *controller.QuestionController
	submission *controller.SubmissionController
	progress   *controller.ProgressController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		question: repository.NewQuestionRepository(db, rdb, cfg.Scoring.CacheTTL),
		history:  repository.NewHistoryRepository(db),
		tag:      repository.NewTagRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	if p, ok := storage.Provider.(*service.MinioStorageProvider); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := p.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
	}
	s.storage = storage

	grader, ai, err := service.NewGrader(context.Background(), cfg.AI, logger.Log)
	if err != nil {
		return nil, err
	}
	s.engine = scoring.NewEngine(grader,
		scoring.WithPassThreshold(cfg.Scoring.PassThreshold),
		scoring.WithTimeout(cfg.AI.Timeout),
	)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.question = service.NewQuestionService(repos.question, repos.tag)
	s.tag = service.NewTagService(repos.tag, repos.question)
	s.progress = service.NewProgressService(repos.history, repos.question)
	s.report = service.NewReportService(s.progress, s.storage)

	// 关键词评分没有讲解能力
	var explainer service.Explainer
	if ai != nil {
		explainer = ai
		s.autoTag = service.NewAutoTaggingService(repos.question, s.tag, ai)
	}
	s.scoring = service.NewScoringService(s.question, repos.history, s.engine, explainer, cfg.Scoring)

	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, s.user),
		question:   controller.NewQuestionController(s.question, s.tag, s.autoTag),
		submission: controller.NewSubmissionController(s.scoring),
		progress:   controller.NewProgressController(s.progress, s.report),
		health:     controller.NewHealthController(a.DB, a.Redis, a.Config.AI.Provider),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// rateLimit 公共接口按 IP 限流，登录后按用户限流；未配置时不限流
func (a *App) rateLimit(key security.KeyFunc) gin.HandlerFunc {
	cfg := a.Config.RateLimit
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if cfg.MaxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return security.NewLimiter(cfg.MaxRequests, window).Middleware(key, a.stop)
}

// applyConfig 热更新：日志级别、及格线、评分超时、重试次数
func (a *App) applyConfig(cfg *config.Config) {
	logger.ApplyConfig(cfg)
	a.services.engine.Configure(cfg.Scoring.PassThreshold, cfg.AI.Timeout)
	a.services.scoring.ApplyConfig(cfg.Scoring)
	logger.Log.Info("配置已重新加载",
		zap.Float64("passThreshold", cfg.Scoring.PassThreshold),
		zap.Duration("aiTimeout", cfg.AI.Timeout),
		zap.String("logLevel", cfg.Log.Level),
	)
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	if interval := a.Config.AI.AutoTagInterval; interval > 0 && a.services.autoTag != nil {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := a.services.autoTag.RunAutoTagging(ctx); err != nil {
						logger.Log.Error("auto tagging error", zap.Error(err))
					}
				}
			}
		}()
	}

	if a.ConfigFile == "" {
		return
	}
	go func() {
		err := configwatcher.Watch(ctx, a.ConfigFile, func(cfg *config.Config) {
			for _, callback := range a.configCallbacks {
				callback(cfg)
			}
		})
		if err != nil {
			logger.Log.Error("配置监听启动失败", zap.Error(err))
		}
	}()
}

func initRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		// 缓存不可用时直接读库
		logger.Log.Warn("Redis 不可用，题目缓存已关闭", zap.Error(err))
		return nil
	}
	return rdb
}

// NewApp configFile 为空时不监听配置变化
func NewApp(cfg *config.Config, configFile string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	app := &App{
		Config:     cfg,
		ConfigFile: configFile,
		DB:         db,
		Redis:      initRedis(cfg),
		stop:       make(chan struct{}),
	}

	repos := app.initRepositories(db, app.Redis, cfg)
	services, err := app.initServices(repos, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("mysql-practice", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(app.applyConfig)

	return app
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	close(a.stop)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
}

// DefaultConfigFile 配置目录下的 config.yaml
func DefaultConfigFile(dir string) string {
	return filepath.Join(dir, "config.yaml")
}
