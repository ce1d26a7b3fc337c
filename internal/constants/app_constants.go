package constants

// 应用状态与默认值常量

const (
	// 应用记录的评估状态流转: PENDING -> SCORED / FAILED
	EvaluationStatusPending = "PENDING"
	EvaluationStatusScored  = "SCORED"
	EvaluationStatusFailed  = "FAILED"

	// 简历提交的处理状态
	SubmissionStatusPendingParsing = "PENDING_PARSING"
	SubmissionStatusParsed         = "PARSED"
	SubmissionStatusParseFailed    = "PARSE_FAILED"

	// 岗位状态
	JobStatusActive = "ACTIVE"
	JobStatusClosed = "CLOSED"
)

const (
	// DefaultScoreCutoff 匹配分数的默认硬过滤阈值
	// 低于该值的候选人在 Prompt 中声明省略，并由聚合器兜底过滤
	DefaultScoreCutoff = 70

	// DefaultBatchSize 单次 LLM 调用携带的候选人数上限
	DefaultBatchSize = 50

	// DefaultBatchConcurrency 批次并发上限
	DefaultBatchConcurrency = 3

	// DefaultMatchCacheTTL 匹配结果缓存的默认过期时间（分钟）
	DefaultMatchCacheTTLMinutes = 15
)

// LLM 任务名称，用于 config.GetModelForTask 的任务级模型路由
const (
	TaskCandidateMatch = "candidate_match"
	TaskResumeParse    = "resume_parse"
	TaskJDGenerate     = "jd_generate"
	TaskLinkedInPost   = "linkedin_post"
)
