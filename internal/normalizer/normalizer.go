package normalizer

import (
	"fmt"
	"strings"

	"talent-match-go/internal/types"
)

// ValidationError 表示原始记录缺失或非法字段
// 调用方可以选择跳过该记录或中止整个批次
type ValidationError struct {
	Field  string // 出错的字段名
	Reason string // 具体原因
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("记录校验失败: 字段 %s %s", e.Field, e.Reason)
}

// NewValidationError 创建一个字段校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CoerceStringList 将任意JSON值规范化为字符串切片
// 规则: nil -> 空切片; 字符串 -> 单元素切片; 数组 -> 逐元素转字符串
// 空字符串不产生元素，保证输出永远非 nil
func CoerceStringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return []string{}
		}
		return []string{trimmed}
	case []string:
		out := make([]string, 0, len(val))
		for _, s := range val {
			if t := strings.TrimSpace(s); t != "" {
				out = append(out, t)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				if t := strings.TrimSpace(s); t != "" {
					out = append(out, t)
				}
			} else if item != nil {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", val)}
	}
}

// SplitRequirements 将分号分隔的岗位要求字符串拆分为有序列表
func SplitRequirements(raw string) []string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NormalizeAvailability 将自由文本的可到岗描述映射为枚举
// 不做摘要子串匹配，只接受明确的结构化取值
func NormalizeAvailability(raw string) types.Availability {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IMMEDIATE", "IMMEDIATELY", "NOW", "AVAILABLE":
		return types.AvailabilityImmediate
	case "NOTICE_PERIOD", "NOTICE", "ON_NOTICE":
		return types.AvailabilityNotice
	default:
		return types.AvailabilityUnknown
	}
}

// NormalizeWorkPreference 将工作地点偏好映射为枚举
func NormalizeWorkPreference(raw string) types.WorkPreference {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "REMOTE":
		return types.WorkPreferenceRemote
	case "ONSITE", "ON-SITE", "ON_SITE", "OFFICE":
		return types.WorkPreferenceOnsite
	case "HYBRID":
		return types.WorkPreferenceHybrid
	default:
		return types.WorkPreferenceUnknown
	}
}

// stringField 从原始记录中取字符串字段，缺失或类型不符返回空串
func stringField(record map[string]any, key string) string {
	if v, ok := record[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// NormalizeCandidate 将原始候选人记录规范化为 CandidateProfile
// 不变式: Skills / Experience / Education 永远非 nil
// 缺失 id 返回 *ValidationError，其余字段按策略兜底
func NormalizeCandidate(record map[string]any) (*types.CandidateProfile, error) {
	id := stringField(record, "id")
	if id == "" {
		return nil, NewValidationError("id", "缺失或为空")
	}

	profile := &types.CandidateProfile{
		ID:             id,
		Name:           stringField(record, "name"),
		Email:          stringField(record, "email"),
		Phone:          stringField(record, "phone"),
		Location:       stringField(record, "location"),
		Summary:        stringField(record, "professional_summary"),
		Skills:         CoerceStringList(record["skills"]),
		Experience:     normalizeExperience(record["job_experience"]),
		Education:      normalizeEducation(record["education_history"]),
		Availability:   NormalizeAvailability(stringField(record, "availability")),
		WorkPreference: NormalizeWorkPreference(stringField(record, "work_preference")),
	}

	return profile, nil
}

// NormalizeJob 将原始岗位记录规范化为 JobPosting
// requirements 可能是分号分隔字符串、字符串数组或缺失
func NormalizeJob(record map[string]any) (*types.JobPosting, error) {
	id := stringField(record, "id")
	if id == "" {
		return nil, NewValidationError("id", "缺失或为空")
	}
	title := stringField(record, "title")
	if title == "" {
		return nil, NewValidationError("title", "缺失或为空")
	}

	job := &types.JobPosting{
		ID:          id,
		Title:       title,
		Company:     stringField(record, "company"),
		Location:    stringField(record, "location"),
		Description: stringField(record, "description"),
	}

	if rawType := stringField(record, "type"); rawType != "" {
		jt := types.JobType(rawType)
		if !types.ValidJobTypes[jt] {
			return nil, NewValidationError("type", fmt.Sprintf("非法取值 %q", rawType))
		}
		job.Type = jt
	}

	switch reqs := record["requirements"].(type) {
	case string:
		job.Requirements = SplitRequirements(reqs)
	default:
		job.Requirements = CoerceStringList(record["requirements"])
	}

	return job, nil
}

// normalizeExperience 规范化工作经历列表
// responsibilities 在源数据中可能是字符串或数组，输出恒为数组
func normalizeExperience(v any) []types.WorkExperience {
	items, ok := v.([]any)
	if !ok {
		return []types.WorkExperience{}
	}
	out := make([]types.WorkExperience, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		exp := types.WorkExperience{
			Company:          stringField(m, "company"),
			Title:            stringField(m, "title"),
			StartDate:        stringField(m, "start_date"),
			Responsibilities: CoerceStringList(m["responsibilities"]),
		}
		if end := stringField(m, "end_date"); end != "" {
			exp.EndDate = &end
		}
		out = append(out, exp)
	}
	return out
}

// normalizeEducation 规范化教育经历列表
func normalizeEducation(v any) []types.EducationEntry {
	items, ok := v.([]any)
	if !ok {
		return []types.EducationEntry{}
	}
	out := make([]types.EducationEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, types.EducationEntry{
			Institution: stringField(m, "institution"),
			Degree:      stringField(m, "degree"),
			Field:       stringField(m, "field"),
			StartYear:   stringField(m, "start_year"),
			EndYear:     stringField(m, "end_year"),
		})
	}
	return out
}

// NormalizeParsedResume 将 LLM 抽取出的原始简历结构转换为规范化画像
// 抽取结果的字段形状不可信，必须走同一套列表兜底逻辑
func NormalizeParsedResume(id string, parsed *types.ParsedResume) (*types.CandidateProfile, error) {
	if id == "" {
		return nil, NewValidationError("id", "缺失或为空")
	}
	if parsed == nil {
		return nil, NewValidationError("resume", "解析结果为空")
	}

	record := map[string]any{
		"id":                   id,
		"name":                 parsed.Name,
		"email":                parsed.Email,
		"phone":                parsed.Phone,
		"location":             parsed.Location,
		"professional_summary": parsed.Summary,
		"skills":               parsed.Skills,
		"availability":         parsed.Availability,
		"work_preference":      parsed.WorkPreference,
	}

	// []map[string]any -> []any 以复用统一的经历规范化逻辑
	exp := make([]any, 0, len(parsed.Experience))
	for _, m := range parsed.Experience {
		exp = append(exp, m)
	}
	record["job_experience"] = exp

	edu := make([]any, 0, len(parsed.Education))
	for _, m := range parsed.Education {
		edu = append(edu, m)
	}
	record["education_history"] = edu

	return NormalizeCandidate(record)
}
