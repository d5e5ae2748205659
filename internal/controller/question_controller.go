package controller

import (
	"mysql_practice_backend/internal/service"
	"mysql_practice_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
	TagService      *service.TagService
	// 未配置大模型时为 nil
	AutoTagging     *service.AutoTaggingService
}

func NewQuestionController(questionService *service.QuestionService, tagService *service.TagService, autoTagging *service.AutoTaggingService) *QuestionController {
	return &QuestionController{
		QuestionService: questionService,
		TagService:      tagService,
		AutoTagging:     autoTagging,
	}
}

// queryUint 可选的正整数查询参数，缺省为 0
func queryUint(ctx *gin.Context, name string) (uint, error) {
	v := ctx.Query(name)
	if v == "" {
		return 0, nil
	}
	return util.ParseUintParam(v)
}

func pageParams(ctx *gin.Context) (int, int, error) {
	page, err := util.ParseIntDefault(ctx.Query("page"), util.DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	perPage, err := util.ParseIntDefault(ctx.Query("perPage"), util.DefaultPerPage)
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}

// @Summary 题目列表
// @Description 按题型、难度、标签筛选启用中的题目，按 id 升序分页
// @Tags 题目
// @Security ApiKeyAuth
// @Produce json
// @Param typeId query int false "题型"
// @Param difficulty query int false "难度 1-5"
// @Param tagId query int false "标签"
// @Param page query int false "页码，从 1 开始"
// @Param perPage query int false "每页数量 1-100"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	var q service.QuestionListQuery
	var err error
	if q.TypeID, err = queryUint(ctx, "typeId"); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if q.Difficulty, err = queryUint(ctx, "difficulty"); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if q.TagID, err = queryUint(ctx, "tagId"); err != nil {
		util.HandleError(ctx, err)
		return
	}
	if q.Page, q.PerPage, err = pageParams(ctx); err != nil {
		util.HandleError(ctx, err)
		return
	}

	list, total, err := c.QuestionService.ListQuestions(q)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: q.Page, PerPage: q.PerPage})
}

// @Summary 题目详情
// @Tags 题目
// @Security ApiKeyAuth
// @Produce json
// @Param id path int true "题目ID"
// @Success 200 {object} util.Response{data=service.QuestionView}
// @Failure 404 {object} util.Response
// @Router /api/questions/{id} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	view, err := c.QuestionService.GetQuestion(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 题型列表
// @Tags 题目
// @Produce json
// @Router /api/question-types [get]
func (c *QuestionController) ListTypes(ctx *gin.Context) {
	types, err := c.QuestionService.ListTypes()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, types)
}

// @Summary 难度等级列表
// @Tags 题目
// @Produce json
// @Router /api/difficulty-levels [get]
func (c *QuestionController) ListDifficulties(ctx *gin.Context) {
	levels, err := c.QuestionService.ListDifficulties()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, levels)
}

// @Summary 推荐题目
// @Description 推荐当前用户从未作答过的题目，先易后难
// @Tags 题目
// @Security ApiKeyAuth
// @Param n query int false "数量 1-50，默认 10"
// @Router /api/recommendations [get]
func (c *QuestionController) Recommend(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	n, err := util.ParseIntDefault(ctx.Query("n"), service.DefaultRecommendations)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	list, err := c.QuestionService.Recommend(claims.UserID, n)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 创建题目
// @Tags 题目管理
// @Security ApiKeyAuth
// @Accept json
// @Param body body service.QuestionInput true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Router /api/admin/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QuestionService.CreateQuestion(&req, util.GetUserFromContext(ctx).UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 更新题目
// @Description 整体替换题干、选项、标准答案和标签
// @Tags 题目管理
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Param body body service.QuestionInput true "题目"
// @Router /api/admin/questions/{id} [put]
func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QuestionService.UpdateQuestion(id, &req, util.GetUserFromContext(ctx).UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// @Summary 启用/停用题目
// @Tags 题目管理
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Router /api/admin/questions/{id}/active [patch]
func (c *QuestionController) SetActive(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req setActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.QuestionService.SetActive(id, *req.IsActive, util.GetUserFromContext(ctx).UserID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id, "isActive": *req.IsActive})
}

// @Summary 标签列表
// @Tags 标签
// @Router /api/tags [get]
func (c *QuestionController) ListTags(ctx *gin.Context) {
	tags, err := c.TagService.ListTags()
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, tags)
}

type createTagRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=255"`
}

// @Summary 创建标签
// @Tags 标签
// @Security ApiKeyAuth
// @Router /api/admin/tags [post]
func (c *QuestionController) CreateTag(ctx *gin.Context) {
	var req createTagRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	tag, err := c.TagService.CreateTag(req.Name, req.Description)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, tag)
}

type attachTagsRequest struct {
	TagIDs []uint `json:"tagIds"`
}

// @Summary 设置题目标签
// @Tags 标签
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Router /api/admin/questions/{id}/tags [put]
func (c *QuestionController) AttachTags(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req attachTagsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.TagService.AttachTags(id, req.TagIDs); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id, "tagIds": req.TagIDs})
}

// @Summary 题目详情（含答案）
// @Description 管理员查看，包含停用题目、正确选项和标准答案
// @Tags 题目管理
// @Security ApiKeyAuth
// @Param id path int true "题目ID"
// @Router /api/admin/questions/{id} [get]
func (c *QuestionController) GetForAdmin(ctx *gin.Context) {
	id, err := util.ParseUintParam(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	q, err := c.QuestionService.GetForAdmin(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 自动打标签
// @Description 调用大模型为没有标签的题目生成标签，每次最多处理 50 题
// @Tags 标签
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AutoTagResult}
// @Failure 503 {object} util.Response
// @Router /api/admin/questions/auto-tag [post]
func (c *QuestionController) AutoTag(ctx *gin.Context) {
	if c.AutoTagging == nil {
		util.Error(ctx, http.StatusServiceUnavailable, "未配置大模型，无法自动打标签")
		return
	}

	result, err := c.AutoTagging.RunAutoTagging(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
