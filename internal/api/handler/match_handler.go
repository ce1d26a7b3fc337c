package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"gorm.io/gorm"

	"talent-match-go/internal/config"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/matcher"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"
)

// MatchHandler 负责处理匹配相关的请求
type MatchHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	matcher *matcher.Matcher
}

// NewMatchHandler 创建 MatchHandler
func NewMatchHandler(cfg *config.Config, st *storage.Storage, m *matcher.Matcher) *MatchHandler {
	return &MatchHandler{
		cfg:     cfg,
		storage: st,
		matcher: m,
	}
}

// matchCandidatesRequest 岗位找人请求体
type matchCandidatesRequest struct {
	CandidateIDs     []string `json:"candidate_ids"`      // 为空时评估岗位下全部申请人
	OnlyAvailableNow bool     `json:"only_available_now"` // 仅保留可立即到岗
	OnlyRemote       bool     `json:"only_remote"`        // 仅保留远程/混合
	SortAscending    bool     `json:"sort_ascending"`     // 默认降序
	ForceRefresh     bool     `json:"force_refresh"`      // 跳过缓存强制重新评估
}

// matchJobsRequest 人找岗位请求体
type matchJobsRequest struct {
	JobIDs        []string `json:"job_ids"` // 为空时在所有开放岗位中匹配
	SortAscending bool     `json:"sort_ascending"`
	Limit         int      `json:"limit"`
}

// HandleMatchCandidates 为岗位评估候选人
// POST /api/v1/jobs/:job_id/match
func (h *MatchHandler) HandleMatchCandidates(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	var req matchCandidatesRequest
	if len(c.Request.Body()) > 0 {
		if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败"})
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

	var candidateModels []models.Candidate
	if len(req.CandidateIDs) > 0 {
		candidateModels, err = h.storage.MySQL.ListCandidatesByIDs(ctx, req.CandidateIDs)
	} else {
		candidateModels, err = h.storage.MySQL.ListApplicantsForJob(ctx, jobID)
	}
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询候选人失败"})
		return
	}

	candidates := make([]*types.CandidateProfile, 0, len(candidateModels))
	candidateIDs := make([]string, 0, len(candidateModels))
	for i := range candidateModels {
		profile, convErr := storage.CandidateToProfile(&candidateModels[i])
		if convErr != nil {
			logger.Ctx(ctx).Warn().
				Err(convErr).
				Str("candidate_id", candidateModels[i].CandidateID).
				Msg("候选人记录转换失败，跳过")
			continue
		}
		candidates = append(candidates, profile)
		candidateIDs = append(candidateIDs, profile.ID)
	}

	// 缓存命中直接返回，避免重复评分同一批次
	cacheTTL := time.Duration(h.cfg.Matcher.CacheTTLMinutes) * time.Minute
	useCache := h.cfg.Matcher.CacheEnabled && h.storage.Redis != nil && !req.ForceRefresh
	if useCache {
		cached, hit, cacheErr := h.storage.Redis.GetCachedMatchResults(ctx, jobID, candidateIDs)
		if cacheErr != nil {
			logger.Ctx(ctx).Warn().Err(cacheErr).Msg("读取匹配缓存失败")
		} else if hit {
			c.JSON(consts.StatusOK, map[string]any{
				"job_id":  jobID,
				"results": cached,
				"cached":  true,
			})
			return
		}
	}

	// 岗位级分布式锁，防止并发重复评估同一岗位
	var lockValue string
	if h.storage.Redis != nil {
		lockValue, err = h.storage.Redis.AcquireMatchLock(ctx, jobID, 2*time.Minute)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("获取匹配锁失败")
		} else if lockValue == "" {
			c.JSON(consts.StatusConflict, map[string]string{"error": "该岗位正在评估中，请稍后重试"})
			return
		}
		if lockValue != "" {
			defer func() {
				if _, relErr := h.storage.Redis.ReleaseMatchLock(context.WithoutCancel(ctx), jobID, lockValue); relErr != nil {
					logger.Ctx(ctx).Warn().Err(relErr).Msg("释放匹配锁失败")
				}
			}()
		}
	}

	opts := matcher.AggregateOptions{
		OnlyAvailableNow: req.OnlyAvailableNow,
		OnlyRemote:       req.OnlyRemote,
	}
	if req.SortAscending {
		opts.Direction = matcher.SortAscending
	}

	results, err := h.matcher.MatchCandidates(ctx, job, candidates, opts)
	if err != nil {
		writeMatchError(c, err)
		return
	}

	h.persistScores(ctx, jobID, results)

	if useCache {
		if cacheErr := h.storage.Redis.CacheMatchResults(ctx, jobID, candidateIDs, results, cacheTTL); cacheErr != nil {
			logger.Ctx(ctx).Warn().Err(cacheErr).Msg("写入匹配缓存失败")
		}
	}

	c.JSON(consts.StatusOK, map[string]any{
		"job_id":  jobID,
		"results": results,
		"cached":  false,
	})
}

// HandleMatchJobs 为候选人评估岗位
// POST /api/v1/candidates/:candidate_id/jobs/match
func (h *MatchHandler) HandleMatchJobs(ctx context.Context, c *app.RequestContext) {
	candidateID := c.Param("candidate_id")
	if candidateID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "candidate_id 不能为空"})
		return
	}

	var req matchJobsRequest
	if len(c.Request.Body()) > 0 {
		if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体解析失败"})
			return
		}
	}

	candidateModel, err := h.storage.MySQL.GetCandidateByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "候选人不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询候选人失败"})
		return
	}

	profile, err := storage.CandidateToProfile(candidateModel)
	if err != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var jobModels []models.Job
	if len(req.JobIDs) > 0 {
		for _, id := range req.JobIDs {
			jm, jErr := h.storage.MySQL.GetJobByID(ctx, id)
			if jErr != nil {
				continue
			}
			jobModels = append(jobModels, *jm)
		}
	} else {
		jobModels, err = h.storage.MySQL.ListActiveJobs(ctx, req.Limit)
		if err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询岗位失败"})
			return
		}
	}

	jobs := make([]*types.JobPosting, 0, len(jobModels))
	for i := range jobModels {
		job, convErr := storage.JobToPosting(&jobModels[i])
		if convErr != nil {
			logger.Ctx(ctx).Warn().
				Err(convErr).
				Str("job_id", jobModels[i].JobID).
				Msg("岗位记录转换失败，跳过")
			continue
		}
		jobs = append(jobs, job)
	}

	opts := matcher.AggregateOptions{}
	if req.SortAscending {
		opts.Direction = matcher.SortAscending
	}

	results, err := h.matcher.MatchJobs(ctx, profile, jobs, opts)
	if err != nil {
		writeMatchError(c, err)
		return
	}

	c.JSON(consts.StatusOK, map[string]any{
		"candidate_id": candidateID,
		"results":      results,
	})
}

// applyRequest 投递申请请求体
type applyRequest struct {
	CandidateID string `json:"candidate_id"`
}

// HandleApplyToJob 候选人投递岗位
// POST /api/v1/jobs/:job_id/apply
// 申请记录与 match.needed 发件箱消息同事务写入，由中继异步触发评估
func (h *MatchHandler) HandleApplyToJob(ctx context.Context, c *app.RequestContext) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "job_id 不能为空"})
		return
	}

	var req applyRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil || req.CandidateID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "candidate_id 不能为空"})
		return
	}

	if _, err := h.storage.MySQL.GetJobByID(ctx, jobID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "岗位不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询岗位失败"})
		return
	}
	if _, err := h.storage.MySQL.GetCandidateByID(ctx, req.CandidateID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "候选人不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询候选人失败"})
		return
	}

	application := &models.Application{
		CandidateID: req.CandidateID,
		JobID:       jobID,
	}
	err := h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(application).Error; err != nil {
			return err
		}

		event := storage.MatchNeededMessage{
			JobID:        jobID,
			CandidateIDs: []string{req.CandidateID},
			TriggeredBy:  "api",
			RequestedAt:  time.Now(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return h.storage.MySQL.CreateOutboxMessage(tx, &models.OutboxMessage{
			AggregateID:      jobID,
			EventType:        storage.EventTypeMatchNeeded,
			Payload:          string(payload),
			TargetExchange:   h.cfg.RabbitMQ.MatchEventsExchange,
			TargetRoutingKey: h.cfg.RabbitMQ.MatchNeededRoutingKey,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(consts.StatusConflict, map[string]string{"error": "该候选人已申请此岗位"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存申请失败"})
		return
	}

	c.JSON(consts.StatusAccepted, map[string]any{
		"application_id": application.ApplicationID,
		"job_id":         jobID,
		"candidate_id":   req.CandidateID,
	})
}

// persistScores 将评估分数写回申请记录，失败只记日志不影响响应
func (h *MatchHandler) persistScores(ctx context.Context, jobID string, results []types.MatchResult) {
	if h.storage.MySQL == nil || len(results) == 0 {
		return
	}

	scores := make(map[string]storage.ScorePayload, len(results))
	for _, r := range results {
		reasonsJSON, err := json.Marshal(r.Reasons)
		if err != nil {
			continue
		}
		scores[r.CandidateID] = storage.ScorePayload{Score: r.Score, ReasonsJSON: reasonsJSON}
	}

	if err := h.storage.MySQL.SaveMatchScores(ctx, jobID, scores); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("持久化匹配分数失败")
	}
}

// writeMatchError 将管线错误映射为HTTP响应
// 补全/解析失败呈现"请重试"，绝不以伪造数据填充响应
func writeMatchError(c *app.RequestContext, err error) {
	switch {
	case errors.Is(err, matcher.ErrValidationFailed):
		c.JSON(consts.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, matcher.ErrCancelled):
		c.JSON(consts.StatusRequestTimeout, map[string]string{"error": "匹配调用已取消"})
	case errors.Is(err, matcher.ErrParseFailed), errors.Is(err, matcher.ErrCompletionService):
		c.JSON(consts.StatusBadGateway, map[string]string{"error": "匹配失败，请重试"})
	default:
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "内部错误"})
	}
}
