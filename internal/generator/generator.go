package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-match-go/internal/logger"
	"talent-match-go/internal/types"
)

// JD生成Prompt，输出结构与 GeneratedJobDescription 对齐
const jdGeneratePrompt = `You are an experienced technical recruiter writing job descriptions.

STRICT OUTPUT CONTRACT:
- Respond with ONLY one JSON object, no prose, no markdown fences.
- Shape: {"title": "<string>", "description": "<2-4 paragraphs>", "requirements": ["<string>", ...]}

Write a job description from the following brief.
TITLE: %s
COMPANY: %s
NOTES: %s`

// 领英帖子生成Prompt，输出纯文本
const linkedInPostPrompt = `You are a social media manager for a recruiting company. Write a short LinkedIn post announcing the job opening below. Keep it under 150 words, energetic but professional, end with a call to action. Respond with the post text only, no hashtag spam (3 hashtags max).

JOB TITLE: %s
COMPANY: %s
LOCATION: %s
DESCRIPTION:
%s`

// ContentGenerator 基于LLM的招聘内容生成器（JD、领英帖子）
type ContentGenerator struct {
	llmModel  model.ToolCallingChatModel
	postModel model.ToolCallingChatModel
}

// Option 定义 ContentGenerator 的配置选项
type Option func(*ContentGenerator)

// WithLinkedInPostModel 为领英帖子生成指定独立模型
// 未指定时帖子生成与JD生成共用同一个模型
func WithLinkedInPostModel(m model.ToolCallingChatModel) Option {
	return func(g *ContentGenerator) {
		if m != nil {
			g.postModel = m
		}
	}
}

// NewContentGenerator 创建内容生成器
func NewContentGenerator(llmModel model.ToolCallingChatModel, options ...Option) (*ContentGenerator, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}
	g := &ContentGenerator{llmModel: llmModel, postModel: llmModel}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// GenerateJobDescription 根据简要信息生成完整JD
func (g *ContentGenerator) GenerateJobDescription(ctx context.Context, title, company, notes string) (*types.GeneratedJobDescription, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("岗位标题不能为空")
	}

	messages := []*schema.Message{
		schema.UserMessage(fmt.Sprintf(jdGeneratePrompt, title, company, notes)),
	}

	resp, err := g.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("JD生成LLM调用失败: %w", err)
	}

	jsonStr := extractObject(resp.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("JD生成响应中未找到JSON对象")
	}

	var result types.GeneratedJobDescription
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("JD生成结果解析失败")
		return nil, fmt.Errorf("反序列化JD生成结果失败: %w", err)
	}

	if strings.TrimSpace(result.Description) == "" {
		return nil, fmt.Errorf("JD生成结果缺失描述")
	}
	if result.Title == "" {
		result.Title = title
	}
	if result.Requirements == nil {
		result.Requirements = []string{}
	}

	return &result, nil
}

// GenerateLinkedInPost 为岗位生成领英宣发帖子（纯文本）
func (g *ContentGenerator) GenerateLinkedInPost(ctx context.Context, job *types.JobPosting) (string, error) {
	if job == nil {
		return "", fmt.Errorf("岗位信息不能为空")
	}

	messages := []*schema.Message{
		schema.UserMessage(fmt.Sprintf(linkedInPostPrompt, job.Title, job.Company, job.Location, job.Description)),
	}

	resp, err := g.postModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("领英帖子生成LLM调用失败: %w", err)
	}

	post := strings.TrimSpace(resp.Content)
	if post == "" {
		return "", fmt.Errorf("领英帖子生成结果为空")
	}
	return post, nil
}

// extractObject 用括号匹配提取首个完整JSON对象
func extractObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	inStr := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inStr {
				escaped = true
			}
		case '"':
			inStr = !inStr
		case '{':
			if !inStr {
				level++
			}
		case '}':
			if !inStr {
				level--
				if level == 0 {
					return text[start : i+1]
				}
			}
		}
	}
	return ""
}
