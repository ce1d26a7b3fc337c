package types

// JobType 岗位类型枚举
type JobType string

const (
	JobTypeFullTime   JobType = "Full-time"
	JobTypePartTime   JobType = "Part-time"
	JobTypeContract   JobType = "Contract"
	JobTypeTemporary  JobType = "Temporary"
	JobTypeInternship JobType = "Internship"
)

// ValidJobTypes 所有合法的岗位类型集合
var ValidJobTypes = map[JobType]bool{
	JobTypeFullTime:   true,
	JobTypePartTime:   true,
	JobTypeContract:   true,
	JobTypeTemporary:  true,
	JobTypeInternship: true,
}

// Availability 候选人可到岗状态
// 规范化阶段产出的枚举字段，取代对自由文本摘要做子串匹配的旧做法
type Availability string

const (
	AvailabilityImmediate Availability = "IMMEDIATE"
	AvailabilityNotice    Availability = "NOTICE_PERIOD"
	AvailabilityUnknown   Availability = "UNKNOWN"
)

// WorkPreference 候选人工作地点偏好
type WorkPreference string

const (
	WorkPreferenceRemote  WorkPreference = "REMOTE"
	WorkPreferenceOnsite  WorkPreference = "ONSITE"
	WorkPreferenceHybrid  WorkPreference = "HYBRID"
	WorkPreferenceUnknown WorkPreference = "UNKNOWN"
)

// WorkExperience 一段工作经历
// 源数据中 responsibilities 可能是字符串或数组，规范化后恒为数组
type WorkExperience struct {
	Company          string   `json:"company"`
	Title            string   `json:"title"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          *string  `json:"end_date,omitempty"` // nil 表示至今
	Responsibilities []string `json:"responsibilities"`
}

// EducationEntry 一条教育经历
type EducationEntry struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartYear   string `json:"start_year,omitempty"`
	EndYear     string `json:"end_year,omitempty"`
}

// CandidateProfile 规范化后的候选人画像
// 不变式：Skills / Experience / Education 永远非 nil
type CandidateProfile struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Location       string           `json:"location,omitempty"`
	Summary        string           `json:"professional_summary,omitempty"`
	Skills         []string         `json:"skills"`
	Experience     []WorkExperience `json:"job_experience"`
	Education      []EducationEntry `json:"education_history"`
	Availability   Availability     `json:"availability"`
	WorkPreference WorkPreference   `json:"work_preference"`
}

// JobPosting 规范化后的岗位信息
// Requirements 在持久层以分号分隔字符串存储，进入管线前拆分为有序列表
type JobPosting struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company,omitempty"`
	Location     string   `json:"location,omitempty"`
	Type         JobType  `json:"type,omitempty"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}

// MatchResult 单个候选人（或岗位）的匹配评估结果
// 仅在一次搜索的生命周期内有效，由调用方持有，不由管线持久化
type MatchResult struct {
	CandidateID string   `json:"candidate_id"`
	Score       int      `json:"score"` // 统一 0-100 整数分制
	Reasons     []string `json:"reasons"`
}

// ParsedResume LLM 从简历文本中抽取出的原始结构
// 字段形状不可信（列表可能缺失或为单个字符串），必须经过 normalizer 处理
type ParsedResume struct {
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

// GeneratedJobDescription JD 生成结果
type GeneratedJobDescription struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
}
