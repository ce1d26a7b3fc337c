package models

import (
	"time"

	"gorm.io/datatypes"
)

// Candidate 候选人主表
type Candidate struct {
	CandidateID      string         `gorm:"type:char(36);primaryKey"`
	Name             string         `gorm:"type:varchar(255)"`
	Email            string         `gorm:"type:varchar(255);uniqueIndex:idx_candidates_email_unique"`
	Phone            string         `gorm:"type:varchar(50)"`
	Location         string         `gorm:"type:varchar(255)"`
	ProfileSummary   string         `gorm:"type:text"`
	SkillsJSON       datatypes.JSON `gorm:"type:json"`
	ExperienceJSON   datatypes.JSON `gorm:"type:json"`
	EducationJSON    datatypes.JSON `gorm:"type:json"`
	Availability     string         `gorm:"type:varchar(20);default:'UNKNOWN'"`
	WorkPreference   string         `gorm:"type:varchar(20);default:'UNKNOWN'"`
	ResumePathOSS    string         `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS string        `gorm:"type:varchar(1024)"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Candidate) TableName() string {
	return "candidates"
}

// Job 岗位信息表
// RequirementsText 以分号分隔存储，进入管线前由 normalizer 拆分
type Job struct {
	JobID            string    `gorm:"type:char(36);primaryKey"`
	JobTitle         string    `gorm:"type:varchar(255);not null"`
	Company          string    `gorm:"type:varchar(255)"`
	Location         string    `gorm:"type:varchar(255)"`
	JobType          string    `gorm:"type:varchar(50)"`
	DescriptionText  string    `gorm:"type:text;not null"`
	RequirementsText string    `gorm:"type:text"`
	Status           string    `gorm:"type:varchar(50);default:'ACTIVE';index:idx_jobs_status"`
	CreatedByUserID  string    `gorm:"type:char(36)"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

func (Job) TableName() string {
	return "jobs"
}

// Application 候选人对岗位的申请及其匹配评估结果
// LLMMatchScore 为空表示尚未评估；评估失败时保持为空，绝不写入伪造分数
type Application struct {
	ApplicationID   uint64         `gorm:"primaryKey;autoIncrement"`
	CandidateID     string         `gorm:"type:char(36);not null;index:idx_app_candidate_id;uniqueIndex:idx_app_candidate_job_unique,priority:1"`
	JobID           string         `gorm:"type:char(36);not null;index:idx_app_job_id_score,priority:1;uniqueIndex:idx_app_candidate_job_unique,priority:2"`
	LLMMatchScore   *int           `gorm:"type:int;index:idx_app_job_id_score,priority:2"`
	LLMReasonsJSON  datatypes.JSON `gorm:"type:json"`
	EvaluationStatus string        `gorm:"type:varchar(50);default:'PENDING';index:idx_app_evaluation_status"`
	EvaluationError string         `gorm:"type:text"`
	EvaluatedAt     *time.Time     `gorm:"type:datetime(6)"`
	CreatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt       time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Job       *Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Application) TableName() string {
	return "applications"
}

// ResumeSubmission 简历提交表，跟踪上传到解析完成的生命周期
type ResumeSubmission struct {
	SubmissionUUID      string     `gorm:"type:char(36);primaryKey"`
	CandidateID         *string    `gorm:"type:char(36);index:idx_rs_candidate_id"`
	SubmissionTimestamp time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	OriginalFilename    string     `gorm:"type:varchar(255)"`
	OriginalFilePathOSS string     `gorm:"type:varchar(1024)"`
	ParsedTextPathOSS   string     `gorm:"type:varchar(1024)"`
	ProcessingStatus    string     `gorm:"type:varchar(50);default:'PENDING_PARSING';index:idx_rs_processing_status"`
	ErrorMessage        string     `gorm:"type:text"`
	CreatedAt           time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)"`
	UpdatedAt           time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID;references:CandidateID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (ResumeSubmission) TableName() string {
	return "resume_submissions"
}
