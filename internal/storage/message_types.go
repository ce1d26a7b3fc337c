package storage

import "time"

// 消息事件类型
const (
	EventTypeMatchNeeded  = "match.needed"
	EventTypeResumeParsed = "resume.parsed"
)

// MatchNeededMessage 匹配需求消息
// 岗位下有新申请（或批量触发）时投递，由 matchworker 消费
type MatchNeededMessage struct {
	JobID        string    `json:"job_id"`                  // 目标岗位ID
	CandidateIDs []string  `json:"candidate_ids,omitempty"` // 指定候选人集合，为空表示岗位下全部申请人
	TriggeredBy  string    `json:"triggered_by,omitempty"`  // 触发来源: api / relay / schedule
	RequestedAt  time.Time `json:"requested_at"`            // 触发时间
}

// ResumeParsedMessage 简历解析完成消息
type ResumeParsedMessage struct {
	SubmissionUUID    string `json:"submission_uuid"`                // 提交UUID
	CandidateID       string `json:"candidate_id"`                   // 候选人ID
	ParsedTextPathOSS string `json:"parsed_text_path_oss,omitempty"` // 解析文本在MinIO中的路径
	ProcessingStatus  string `json:"processing_status,omitempty"`    // 处理状态
	Error             string `json:"error,omitempty"`                // 错误信息
}
