package matcher

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"talent-match-go/internal/types"
)

// 匹配Prompt模板
// 契约要点：
//  1. 只允许返回严格JSON数组，禁止自由文本
//  2. 明确声明分数截断策略，保证模型的筛选偏好跨调用稳定
//  3. 统一 0-100 整数分制
const matchSystemPrompt = `You are an expert technical recruiter. You evaluate how well candidates fit a job posting.

STRICT OUTPUT CONTRACT:
- Respond with ONLY a JSON array, no prose, no markdown fences.
- Each element: {"id": "<candidate id>", "score": <integer 0-100>, "reasons": ["<short reason>", ...]}
- Scores are integers on a 0-100 scale. Never use a 0-10 scale.
- Omit any candidate scoring below %d. An empty array [] is a valid answer when nobody qualifies.
- Never invent candidate ids that are not in the input.

Example output:
[{"id":"c1","score":92,"reasons":["5 years of React","led frontend team"]},{"id":"c4","score":78,"reasons":["solid TypeScript","no GraphQL exposure"]}]`

const jobSearchSystemPrompt = `You are an expert career advisor. You evaluate how well job postings fit a candidate profile.

STRICT OUTPUT CONTRACT:
- Respond with ONLY a JSON array, no prose, no markdown fences.
- Each element: {"id": "<job id>", "score": <integer 0-100>, "reasons": ["<short reason>", ...]}
- Scores are integers on a 0-100 scale. Never use a 0-10 scale.
- Omit any job scoring below %d. An empty array [] is a valid answer when nothing qualifies.
- Never invent job ids that are not in the input.`

// candidateForPrompt 仅序列化与匹配相关的候选人字段
// 联系方式（邮箱/电话）不进入Prompt
type candidateForPrompt struct {
	ID             string                 `json:"id"`
	Summary        string                 `json:"professional_summary,omitempty"`
	Skills         []string               `json:"skills"`
	Location       string                 `json:"location,omitempty"`
	Experience     []types.WorkExperience `json:"job_experience"`
	Availability   types.Availability     `json:"availability"`
	WorkPreference types.WorkPreference   `json:"work_preference"`
}

// jobForPrompt 序列化岗位信息
type jobForPrompt struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company,omitempty"`
	Location     string   `json:"location,omitempty"`
	Type         string   `json:"type,omitempty"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

// PromptBuilder 构造匹配调用的消息序列
type PromptBuilder struct {
	scoreCutoff int
}

// NewPromptBuilder 创建Prompt构造器，cutoff 为写入Prompt的分数截断阈值
func NewPromptBuilder(scoreCutoff int) *PromptBuilder {
	if scoreCutoff <= 0 || scoreCutoff > 100 {
		scoreCutoff = 70
	}
	return &PromptBuilder{scoreCutoff: scoreCutoff}
}

// ScoreCutoff 返回构造器声明的截断阈值
func (b *PromptBuilder) ScoreCutoff() int {
	return b.scoreCutoff
}

// BuildCandidateMatch 构造"岗位找人"的消息序列
// 一个岗位对一批候选人，候选人序列化时剔除联系方式
func (b *PromptBuilder) BuildCandidateMatch(job *types.JobPosting, candidates []*types.CandidateProfile) ([]*schema.Message, error) {
	if job == nil {
		return nil, fmt.Errorf("岗位信息不能为空")
	}

	jobJSON, err := json.Marshal(toJobForPrompt(job))
	if err != nil {
		return nil, fmt.Errorf("序列化岗位信息失败: %w", err)
	}

	prompts := make([]candidateForPrompt, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		prompts = append(prompts, candidateForPrompt{
			ID:             c.ID,
			Summary:        c.Summary,
			Skills:         c.Skills,
			Location:       c.Location,
			Experience:     c.Experience,
			Availability:   c.Availability,
			WorkPreference: c.WorkPreference,
		})
	}

	candidatesJSON, err := json.Marshal(prompts)
	if err != nil {
		return nil, fmt.Errorf("序列化候选人列表失败: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("JOB POSTING:\n")
	sb.Write(jobJSON)
	sb.WriteString("\n\nCANDIDATES:\n")
	sb.Write(candidatesJSON)
	sb.WriteString("\n\nScore each candidate against the job posting and reply per the output contract.")

	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(matchSystemPrompt, b.scoreCutoff)),
		schema.UserMessage(sb.String()),
	}, nil
}

// BuildJobSearch 构造"人找岗位"的消息序列（岗位找人的对偶）
func (b *PromptBuilder) BuildJobSearch(profile *types.CandidateProfile, jobs []*types.JobPosting) ([]*schema.Message, error) {
	if profile == nil {
		return nil, fmt.Errorf("候选人画像不能为空")
	}

	profileJSON, err := json.Marshal(candidateForPrompt{
		ID:             profile.ID,
		Summary:        profile.Summary,
		Skills:         profile.Skills,
		Location:       profile.Location,
		Experience:     profile.Experience,
		Availability:   profile.Availability,
		WorkPreference: profile.WorkPreference,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化候选人画像失败: %w", err)
	}

	jobPrompts := make([]jobForPrompt, 0, len(jobs))
	for _, j := range jobs {
		if j == nil {
			continue
		}
		jobPrompts = append(jobPrompts, toJobForPrompt(j))
	}

	jobsJSON, err := json.Marshal(jobPrompts)
	if err != nil {
		return nil, fmt.Errorf("序列化岗位列表失败: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("CANDIDATE PROFILE:\n")
	sb.Write(profileJSON)
	sb.WriteString("\n\nJOB POSTINGS:\n")
	sb.Write(jobsJSON)
	sb.WriteString("\n\nScore each job posting against the candidate profile and reply per the output contract.")

	return []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(jobSearchSystemPrompt, b.scoreCutoff)),
		schema.UserMessage(sb.String()),
	}, nil
}

func toJobForPrompt(job *types.JobPosting) jobForPrompt {
	reqs := job.Requirements
	if reqs == nil {
		reqs = []string{}
	}
	return jobForPrompt{
		ID:           job.ID,
		Title:        job.Title,
		Company:      job.Company,
		Location:     job.Location,
		Type:         string(job.Type),
		Description:  job.Description,
		Requirements: reqs,
	}
}
