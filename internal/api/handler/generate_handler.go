package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	gofrsuuid "github.com/gofrs/uuid/v5"
	"gorm.io/gorm"

	"talent-match-go/internal/config"
	"talent-match-go/internal/generator"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
)

// GenerateHandler 处理JD与领英帖子生成
type GenerateHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	generator *generator.ContentGenerator
}

// NewGenerateHandler 创建 GenerateHandler
func NewGenerateHandler(cfg *config.Config, st *storage.Storage, gen *generator.ContentGenerator) *GenerateHandler {
	return &GenerateHandler{
		cfg:       cfg,
		storage:   st,
		generator: gen,
	}
}

// generateJDRequest JD生成请求体
type generateJDRequest struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Notes   string `json:"notes"`   // 招聘方的要点备注，自由文本
	Persist bool   `json:"persist"` // 为true时将生成结果落库为新岗位
}

// HandleGenerateJobDescription 根据要点生成完整JD
// POST /api/v1/jobs/generate-description
func (h *GenerateHandler) HandleGenerateJobDescription(ctx context.Context, c *app.RequestContext) {
	var req generateJDRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败"})
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "title 不能为空"})
		return
	}

	genTimeout := config.GetDuration(h.cfg.Generator.GenerateTimeout, 45*time.Second)
	genCtx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()

	jd, err := h.generator.GenerateJobDescription(genCtx, req.Title, req.Company, req.Notes)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("title", req.Title).Msg("JD生成失败")
		c.JSON(consts.StatusBadGateway, map[string]string{"error": "生成失败，请重试"})
		return
	}

	resp := map[string]any{
		"title":        jd.Title,
		"description":  jd.Description,
		"requirements": jd.Requirements,
	}

	if req.Persist {
		jobUUID, idErr := gofrsuuid.NewV4()
		if idErr != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "生成岗位ID失败"})
			return
		}
		job := &models.Job{
			JobID:            jobUUID.String(),
			JobTitle:         jd.Title,
			Company:          req.Company,
			DescriptionText:  jd.Description,
			RequirementsText: strings.Join(jd.Requirements, "; "),
		}
		if err := h.storage.MySQL.CreateJob(ctx, job); err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存岗位失败"})
			return
		}
		resp["job_id"] = job.JobID
	}

	c.JSON(consts.StatusOK, resp)
}

// HandleGenerateLinkedInPost 为已有岗位生成领英招聘帖
// POST /api/v1/jobs/:job_id/linkedin-post
// 生成的文案缓存到Redis，命中缓存时不再调用LLM
func (h *GenerateHandler) HandleGenerateLinkedInPost(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	if h.storage.Redis != nil {
		if cached, err := h.storage.Redis.GetJobDescriptionText(ctx, jobID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("读取帖子缓存失败")
		} else if cached != "" {
			c.JSON(consts.StatusOK, map[string]any{
				"job_id": jobID,
				"post":   cached,
				"cached": true,
			})
			return
		}
	}

	jobModel, err := h.storage.MySQL.GetJobByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "岗位不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询岗位失败"})
		return
	}

	job, err := storage.JobToPosting(jobModel)
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	genTimeout := config.GetDuration(h.cfg.Generator.GenerateTimeout, 45*time.Second)
	genCtx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()

	post, err := h.generator.GenerateLinkedInPost(genCtx, job)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("领英帖子生成失败")
		c.JSON(consts.StatusBadGateway, map[string]string{"error": "生成失败，请重试"})
		return
	}

	if h.storage.Redis != nil {
		ttl := time.Duration(h.cfg.Matcher.CacheTTLMinutes) * time.Minute
		if err := h.storage.Redis.SetJobDescriptionText(ctx, jobID, post, ttl); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("写入帖子缓存失败")
		}
	}

	c.JSON(consts.StatusOK, map[string]any{
		"job_id": jobID,
		"post":   post,
		"cached": false,
	})
}
