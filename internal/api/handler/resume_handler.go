package handler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	gofrsuuid "github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"talent-match-go/internal/config"
	"talent-match-go/internal/constants"
	"talent-match-go/internal/logger"
	"talent-match-go/internal/parser"
	"talent-match-go/internal/storage"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/tracing"
	"talent-match-go/internal/types"
)

// ResumeHandler 处理简历上传与查询
type ResumeHandler struct {
	cfg       *config.Config
	storage   *storage.Storage
	extractor *parser.ResumeExtractor
}

// NewResumeHandler 创建 ResumeHandler
func NewResumeHandler(cfg *config.Config, st *storage.Storage, extractor *parser.ResumeExtractor) *ResumeHandler {
	return &ResumeHandler{
		cfg:       cfg,
		storage:   st,
		extractor: extractor,
	}
}

// HandleUploadResume 接收简历上传
// POST /api/v1/resumes/upload (multipart)
// 表单字段: file(可选原始文件) resume_text(可选已抽取文本) candidate_id(可选)
// target_job_id(可选，解析成功后自动投递该岗位并触发评估)
// 提供文本时同步走LLM结构化抽取并落库；仅有二进制文件时记录为待解析
func (h *ResumeHandler) HandleUploadResume(ctx context.Context, c *app.RequestContext) {
	resumeText := c.PostForm("resume_text")
	candidateID := c.PostForm("candidate_id")
	targetJobID := c.PostForm("target_job_id")
	fileHeader, fileErr := c.FormFile("file")

	if resumeText == "" && fileErr != nil {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "需要提供 file 或 resume_text 之一"})
		return
	}

	submissionUUID, err := gofrsuuid.NewV4()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "生成提交ID失败"})
		return
	}
	submissionID := submissionUUID.String()

	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionID,
		SubmissionTimestamp: time.Now(),
		ProcessingStatus:    constants.SubmissionStatusPendingParsing,
	}
	if candidateID != "" {
		submission.CandidateID = &candidateID
	}

	// 原始文件先进对象存储，保证源材料不丢
	if fileErr == nil && fileHeader != nil {
		f, openErr := fileHeader.Open()
		if openErr != nil {
			c.JSON(consts.StatusBadRequest, map[string]string{"error": "读取上传文件失败"})
			return
		}
		defer f.Close()

		ext := filepath.Ext(fileHeader.Filename)
		if ext == "" {
			ext = ".bin"
		}
		objectPath, upErr := h.storage.MinIO.UploadResumeFile(ctx, submissionID, ext, f, fileHeader.Size)
		if upErr != nil {
			logger.Ctx(ctx).Error().Err(upErr).Msg("上传简历文件到对象存储失败")
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存简历文件失败"})
			return
		}
		submission.OriginalFilename = fileHeader.Filename
		submission.OriginalFilePathOSS = objectPath
	}

	if resumeText == "" {
		// 没有文本只能记录提交，等待外部解析流程补投文本
		if err := h.storage.MySQL.CreateResumeSubmission(ctx, submission); err != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存提交记录失败"})
			return
		}
		c.JSON(consts.StatusAccepted, map[string]any{
			"submission_uuid":   submissionID,
			"processing_status": constants.SubmissionStatusPendingParsing,
		})
		return
	}

	// 有文本直接走LLM结构化抽取
	if candidateID == "" {
		cid, idErr := gofrsuuid.NewV4()
		if idErr != nil {
			c.JSON(consts.StatusInternalServerError, map[string]string{"error": "生成候选人ID失败"})
			return
		}
		candidateID = cid.String()
		submission.CandidateID = &candidateID
	}

	extractTimeout := config.GetDuration(h.cfg.ResumeParser.ParseTimeout, 30*time.Second)
	extractCtx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	profile, err := h.extractor.ExtractProfile(extractCtx, candidateID, resumeText)
	if err != nil {
		submission.ProcessingStatus = constants.SubmissionStatusParseFailed
		submission.ErrorMessage = err.Error()
		if dbErr := h.storage.MySQL.CreateResumeSubmission(ctx, submission); dbErr != nil {
			logger.Ctx(ctx).Error().Err(dbErr).Msg("保存解析失败的提交记录失败")
		}
		c.JSON(consts.StatusBadGateway, map[string]any{
			"submission_uuid": submissionID,
			"error":           "简历解析失败，请重试",
		})
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(candidateSpanAttributes(submissionID, profile)...)

	parsedTextPath, err := h.storage.MinIO.UploadParsedText(ctx, submissionID, resumeText)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("上传解析文本失败")
	}
	submission.ParsedTextPathOSS = parsedTextPath
	submission.ProcessingStatus = constants.SubmissionStatusParsed

	candidateModel, err := storage.ProfileToCandidate(profile)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "序列化候选人画像失败"})
		return
	}
	candidateModel.ResumePathOSS = submission.OriginalFilePathOSS
	candidateModel.ParsedTextPathOSS = parsedTextPath

	// 提交记录、候选人画像、发件箱消息在同一事务内落库
	err = h.storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(submission).Error; err != nil {
			return err
		}
		if err := tx.Clauses(upsertCandidateClause()).Create(candidateModel).Error; err != nil {
			return err
		}

		event := storage.ResumeParsedMessage{
			SubmissionUUID:    submissionID,
			CandidateID:       candidateID,
			ParsedTextPathOSS: parsedTextPath,
			ProcessingStatus:  constants.SubmissionStatusParsed,
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if err := h.storage.MySQL.CreateOutboxMessage(tx, &models.OutboxMessage{
			AggregateID:      submissionID,
			EventType:        storage.EventTypeResumeParsed,
			Payload:          string(payload),
			TargetExchange:   h.cfg.RabbitMQ.MatchEventsExchange,
			TargetRoutingKey: storage.EventTypeResumeParsed,
		}); err != nil {
			return err
		}

		// 指定了目标岗位时同事务内投递申请并触发评估
		if targetJobID != "" {
			application := &models.Application{CandidateID: candidateID, JobID: targetJobID}
			if err := tx.Create(application).Error; err != nil {
				return err
			}
			matchEvent := storage.MatchNeededMessage{
				JobID:        targetJobID,
				CandidateIDs: []string{candidateID},
				TriggeredBy:  "resume_upload",
				RequestedAt:  time.Now(),
			}
			matchPayload, err := json.Marshal(matchEvent)
			if err != nil {
				return err
			}
			if err := h.storage.MySQL.CreateOutboxMessage(tx, &models.OutboxMessage{
				AggregateID:      targetJobID,
				EventType:        storage.EventTypeMatchNeeded,
				Payload:          string(matchPayload),
				TargetExchange:   h.cfg.RabbitMQ.MatchEventsExchange,
				TargetRoutingKey: h.cfg.RabbitMQ.MatchNeededRoutingKey,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "保存解析结果失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]any{
		"submission_uuid":   submissionID,
		"candidate_id":      candidateID,
		"processing_status": constants.SubmissionStatusParsed,
		"profile":           profile,
	})
}

// HandleGetResumeDownloadURL 生成原始简历的预签名下载链接
// GET /api/v1/resumes/:submission_uuid/download
func (h *ResumeHandler) HandleGetResumeDownloadURL(ctx context.Context, c *app.RequestContext) {
	submissionID := c.Param("submission_uuid")
	if submissionID == "" {
		c.JSON(consts.StatusBadRequest, map[string]string{"error": "submission_uuid 不能为空"})
		return
	}

	var submission models.ResumeSubmission
	err := h.storage.MySQL.DB().WithContext(ctx).
		First(&submission, "submission_uuid = ?", submissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(consts.StatusNotFound, map[string]string{"error": "提交记录不存在"})
			return
		}
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "查询提交记录失败"})
		return
	}
	if submission.OriginalFilePathOSS == "" {
		c.JSON(consts.StatusNotFound, map[string]string{"error": "该提交没有原始文件"})
		return
	}

	url, err := h.storage.MinIO.GetPresignedResumeURL(ctx, submission.OriginalFilePathOSS, 15*time.Minute)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, map[string]string{"error": "生成下载链接失败"})
		return
	}

	c.JSON(consts.StatusOK, map[string]string{
		"submission_uuid": submissionID,
		"download_url":    url,
	})
}

// candidateSpanAttributes 抽取结果上报到span的属性
// 姓名与邮箱经过掩码，联系方式明文绝不进追踪后端
func candidateSpanAttributes(submissionID string, profile *types.CandidateProfile) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("resume.submission_uuid", submissionID),
		attribute.String("candidate.id", profile.ID),
		attribute.String("candidate.name", tracing.SafeAttributeValue("candidate.name", profile.Name, tracing.DefaultMaxLength)),
		attribute.String("candidate.email", tracing.SafeAttributeValue("candidate.email", profile.Email, tracing.DefaultMaxLength)),
		attribute.String("candidate.location", tracing.SafeAttributeValue("candidate.location", profile.Location, tracing.DefaultMaxLength)),
		attribute.Int("candidate.skill_count", len(profile.Skills)),
	}
}

// upsertCandidateClause 按候选人主键冲突时整行更新
func upsertCandidateClause() clause.Expression {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		UpdateAll: true,
	}
}
