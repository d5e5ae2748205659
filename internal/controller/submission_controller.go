package controller

import (
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	ScoringService *service.ScoringService
}

func NewSubmissionController(scoringService *service.ScoringService) *SubmissionController {
	return &SubmissionController{ScoringService: scoringService}
}

type submitRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// @Summary 提交答案
// @Description 判题并记录答题历史；主观题评分不可用时返回 503 且不记录
// @Tags 答题
// @Security ApiKeyAuth
// @Accept json
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/questions/{id}/submit [post]
func (c *SubmissionController) Submit(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.ScoringService.SubmitAnswer(ctx.Request.Context(), claims.UserID, id, req.Answer)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type batchRequest struct {
	Items []service.SubmissionItem `json:"items" binding:"required,min=1,dive"`
}

// @Summary 批量提交答案
// @Description 并发判题，逐题返回结果或错误
// @Tags 答题
// @Security ApiKeyAuth
// @Accept json
// @Success 200 {object} util.Response{data=[]service.BatchItemResult}
// @Router /api/submissions/batch [post]
func (c *SubmissionController) SubmitBatch(ctx *gin.Context) {
	var req batchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	results, err := c.ScoringService.SubmitBatch(ctx.Request.Context(), claims.UserID, req.Items)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, results)
}
