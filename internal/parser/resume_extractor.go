package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-match-go/internal/logger"
	"talent-match-go/internal/normalizer"
	"talent-match-go/internal/types"
)

// 简历抽取Prompt
// 要求模型只输出一个JSON对象；缺失信息置空而不是编造
const resumeExtractPrompt = `You are a resume parsing engine. Extract structured data from the resume text below.

STRICT OUTPUT CONTRACT:
- Respond with ONLY one JSON object, no prose, no markdown fences.
- Shape: {"name","email","phone","location","professional_summary","skills":[...],"job_experience":[{"company","title","start_date","end_date","responsibilities":[...]}],"education_history":[{"institution","degree","field","start_year","end_year"}],"availability","work_preference"}
- availability is one of IMMEDIATE / NOTICE_PERIOD / UNKNOWN; work_preference is one of REMOTE / ONSITE / HYBRID / UNKNOWN.
- Leave a field empty ("" or []) when the resume does not state it. Never invent data.

RESUME TEXT:
%s`

// ResumeExtractor 基于LLM的简历结构化抽取器
type ResumeExtractor struct {
	llmModel       model.ToolCallingChatModel
	promptTemplate string
}

// ResumeExtractorOption 定义抽取器的配置选项
type ResumeExtractorOption func(*ResumeExtractor)

// WithCustomPromptTemplate 覆盖默认抽取Prompt（必须保留 %s 占位符）
func WithCustomPromptTemplate(template string) ResumeExtractorOption {
	return func(e *ResumeExtractor) {
		if strings.Contains(template, "%s") {
			e.promptTemplate = template
		}
	}
}

// NewResumeExtractor 创建简历抽取器
func NewResumeExtractor(llmModel model.ToolCallingChatModel, options ...ResumeExtractorOption) (*ResumeExtractor, error) {
	if llmModel == nil {
		return nil, fmt.Errorf("LLM模型不能为空")
	}

	e := &ResumeExtractor{
		llmModel:       llmModel,
		promptTemplate: resumeExtractPrompt,
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Extract 从简历纯文本中抽取结构化信息
// 抽取结果的字段形状不可信，由 normalizer 做最终收敛
func (e *ResumeExtractor) Extract(ctx context.Context, resumeText string) (*types.ParsedResume, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, fmt.Errorf("简历文本为空")
	}

	messages := []*schema.Message{
		schema.UserMessage(fmt.Sprintf(e.promptTemplate, resumeText)),
	}

	resp, err := e.llmModel.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("简历抽取LLM调用失败: %w", err)
	}

	jsonStr := extractJSONObject(resp.Content)
	if jsonStr == "" {
		return nil, fmt.Errorf("抽取响应中未找到JSON对象")
	}

	var parsed rawParsedResume
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("简历抽取JSON解析失败")
		return nil, fmt.Errorf("反序列化抽取结果失败: %w", err)
	}

	return parsed.toParsedResume(), nil
}

// ExtractProfile 抽取并规范化为候选人画像
func (e *ResumeExtractor) ExtractProfile(ctx context.Context, candidateID, resumeText string) (*types.CandidateProfile, error) {
	parsed, err := e.Extract(ctx, resumeText)
	if err != nil {
		return nil, err
	}
	return normalizer.NormalizeParsedResume(candidateID, parsed)
}

// rawParsedResume 接受模型输出的形状漂移
type rawParsedResume struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	Location       string           `json:"location"`
	Summary        string           `json:"professional_summary"`
	Skills         any              `json:"skills"`
	Experience     []map[string]any `json:"job_experience"`
	Education      []map[string]any `json:"education_history"`
	Availability   string           `json:"availability"`
	WorkPreference string           `json:"work_preference"`
}

func (r *rawParsedResume) toParsedResume() *types.ParsedResume {
	return &types.ParsedResume{
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		Location:       r.Location,
		Summary:        r.Summary,
		Skills:         r.Skills,
		Experience:     r.Experience,
		Education:      r.Education,
		Availability:   r.Availability,
		WorkPreference: r.WorkPreference,
	}
}

// extractJSONObject 用括号匹配从文本中提取首个完整JSON对象
func extractJSONObject(text string) string {
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
