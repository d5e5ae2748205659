package controller

import (
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	ReportService   *service.ReportService
}

func NewProgressController(progressService *service.ProgressService, reportService *service.ReportService) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		ReportService:   reportService,
	}
}

// @Summary 学习进度
// @Description 总体与按题型、难度的正确率
// @Tags 进度
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.Progress}
// @Router /api/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	p, err := c.ProgressService.GetProgress(claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// parseTime 支持日期或 RFC3339
func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(util.DateFormat, v, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, util.Validationf("invalid time %q", v)
	}
	return &t, nil
}

// @Summary 答题记录
// @Tags 进度
// @Security ApiKeyAuth
// @Param from query string false "开始时间 (2006-01-02 或 RFC3339)"
// @Param to query string false "结束时间，不含"
// @Param isCorrect query bool false "是否正确"
// @Param typeId query int false "题型"
// @Param page query int false "页码"
// @Param perPage query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/progress/history [get]
func (c *ProgressController) History(ctx *gin.Context) {
	var q service.HistoryQuery
	var err error
	if q.From, err = parseTime(ctx.Query("from")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if q.To, err = parseTime(ctx.Query("to")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if v := ctx.Query("isCorrect"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			util.BadRequest(ctx, "invalid isCorrect")
			return
		}
		q.IsCorrect = &b
	}
	if q.TypeID, err = queryUint(ctx, "typeId"); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if q.Page, q.PerPage, err = pageParams(ctx); err != nil {
		util.HandleError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	list, total, err := c.ProgressService.History(claims.UserID, q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: q.Page, PerPage: q.PerPage})
}

// @Summary 错题统计
// @Tags 进度
// @Security ApiKeyAuth
// @Param limit query int false "数量 1-100，默认 10"
// @Router /api/progress/mistakes [get]
func (c *ProgressController) Mistakes(ctx *gin.Context) {
	limit, err := util.ParseIntDefault(ctx.Query("limit"), service.DefaultMistakes)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	list, err := c.ProgressService.Mistakes(claims.UserID, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 每日答题情况
// @Tags 进度
// @Security ApiKeyAuth
// @Param days query int false "天数 1-90，默认 7"
// @Router /api/progress/daily [get]
func (c *ProgressController) Daily(ctx *gin.Context) {
	days, err := util.ParseIntDefault(ctx.Query("days"), service.DefaultDays)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	claims := util.GetUserFromContext(ctx)
	list, err := c.ProgressService.Daily(claims.UserID, days)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 导出学习报告
// @Description 生成 CSV 报告并上传到对象存储
// @Tags 进度
// @Security ApiKeyAuth
// @Success 201 {object} util.Response{data=service.Report}
// @Router /api/progress/report [post]
func (c *ProgressController) ExportReport(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	report, err := c.ReportService.Export(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, report)
}
