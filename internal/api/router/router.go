package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"talent-match-go/internal/api/handler"
	"talent-match-go/internal/config"
)

// RegisterRoutes 注册 API 路由
// 配置了 api_keys 时对 /api/v1 下所有路由启用 Bearer 鉴权
func RegisterRoutes(
	h *server.Hertz,
	cfg *config.Config,
	matchHandler *handler.MatchHandler,
	resumeHandler *handler.ResumeHandler,
	generateHandler *handler.GenerateHandler,
) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")

	if len(cfg.Server.APIKeys) > 0 {
		validKeys := make(map[string]bool, len(cfg.Server.APIKeys))
		for _, key := range cfg.Server.APIKeys {
			validKeys[key] = true
		}
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return validKeys[key], nil
			}),
		))
	}

	// 匹配管线
	api.POST("/jobs/:job_id/apply", matchHandler.HandleApplyToJob)
	api.POST("/jobs/:job_id/match", matchHandler.HandleMatchCandidates)
	api.POST("/candidates/:candidate_id/jobs/match", matchHandler.HandleMatchJobs)

	// 简历
	api.POST("/resumes/upload", resumeHandler.HandleUploadResume)
	api.GET("/resumes/:submission_uuid/download", resumeHandler.HandleGetResumeDownloadURL)

	// 内容生成
	api.POST("/jobs/generate-description", generateHandler.HandleGenerateJobDescription)
	api.POST("/jobs/:job_id/linkedin-post", generateHandler.HandleGenerateLinkedInPost)
}
