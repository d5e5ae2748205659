package app

import (
	"mysql_practice_backend/internal/config"
	"mysql_practice_backend/internal/middleware"
	"mysql_practice_backend/internal/model"
	"mysql_practice_backend/pkg/monitoring"
	"mysql_practice_backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		a.rateLimit(middleware.UserKey),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, repos, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	public.Use(a.rateLimit(security.ClientIP))
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/question-types", c.question.ListTypes)
		public.GET("/difficulty-levels", c.question.ListDifficulties)
		public.GET("/tags", c.question.ListTags)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.auth.GetProfile)

	questions := group.Group("/questions")
	{
		questions.GET("", c.question.ListQuestions)
		questions.GET("/:id", c.question.GetQuestion)
		questions.POST("/:id/submit", c.submission.Submit)
	}
	group.POST("/submissions/batch", c.submission.SubmitBatch)
	group.GET("/recommendations", c.question.Recommend)

	progress := group.Group("/progress")
	{
		progress.GET("", c.progress.GetProgress)
		progress.GET("/history", c.progress.History)
		progress.GET("/mistakes", c.progress.Mistakes)
		progress.GET("/daily", c.progress.Daily)
		progress.POST("/report", c.progress.ExportReport)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.RoleMiddleware(model.Admin),
		a.rateLimit(middleware.UserKey),
		middleware.ActivityMiddleware(repos.user),
	)
	{
		admin.POST("/questions", c.question.CreateQuestion)
		admin.POST("/questions/auto-tag", c.question.AutoTag)
		admin.GET("/questions/:id", c.question.GetForAdmin)
		admin.PUT("/questions/:id", c.question.UpdateQuestion)
		admin.PATCH("/questions/:id/active", c.question.SetActive)
		admin.PUT("/questions/:id/tags", c.question.AttachTags)
		admin.POST("/tags", c.question.CreateTag)
	}
}
