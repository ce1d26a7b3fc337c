package storage

import (
	"encoding/json"
	"fmt"

	"talent-match-go/internal/normalizer"
	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"
)

// JobToPosting 将数据库岗位记录转换为管线输入
func JobToPosting(m *models.Job) (*types.JobPosting, error) {
	record := map[string]any{
		"id":           m.JobID,
		"title":        m.JobTitle,
		"company":      m.Company,
		"location":     m.Location,
		"description":  m.DescriptionText,
		"requirements": m.RequirementsText,
	}
	if m.JobType != "" {
		record["type"] = m.JobType
	}
	return normalizer.NormalizeJob(record)
}

// CandidateToProfile 将数据库候选人记录转换为管线输入
// JSON列反序列化失败时该列按缺失处理，由规范化兜底为空列表
func CandidateToProfile(m *models.Candidate) (*types.CandidateProfile, error) {
	record := map[string]any{
		"id":                   m.CandidateID,
		"name":                 m.Name,
		"email":                m.Email,
		"phone":                m.Phone,
		"location":             m.Location,
		"professional_summary": m.ProfileSummary,
		"availability":         m.Availability,
		"work_preference":      m.WorkPreference,
	}

	if len(m.SkillsJSON) > 0 {
		var skills any
		if err := json.Unmarshal(m.SkillsJSON, &skills); err == nil {
			record["skills"] = skills
		}
	}
	if len(m.ExperienceJSON) > 0 {
		var exp []any
		if err := json.Unmarshal(m.ExperienceJSON, &exp); err == nil {
			record["job_experience"] = exp
		}
	}
	if len(m.EducationJSON) > 0 {
		var edu []any
		if err := json.Unmarshal(m.EducationJSON, &edu); err == nil {
			record["education_history"] = edu
		}
	}

	profile, err := normalizer.NormalizeCandidate(record)
	if err != nil {
		return nil, fmt.Errorf("候选人 %s 规范化失败: %w", m.CandidateID, err)
	}
	return profile, nil
}

// ProfileToCandidate 将规范化画像转为数据库记录
func ProfileToCandidate(profile *types.CandidateProfile) (*models.Candidate, error) {
	skillsJSON, err := json.Marshal(profile.Skills)
	if err != nil {
		return nil, fmt.Errorf("序列化技能列表失败: %w", err)
	}
	expJSON, err := json.Marshal(profile.Experience)
	if err != nil {
		return nil, fmt.Errorf("序列化工作经历失败: %w", err)
	}
	eduJSON, err := json.Marshal(profile.Education)
	if err != nil {
		return nil, fmt.Errorf("序列化教育经历失败: %w", err)
	}

	return &models.Candidate{
		CandidateID:    profile.ID,
		Name:           profile.Name,
		Email:          profile.Email,
		Phone:          profile.Phone,
		Location:       profile.Location,
		ProfileSummary: profile.Summary,
		SkillsJSON:     skillsJSON,
		ExperienceJSON: expJSON,
		EducationJSON:  eduJSON,
		Availability:   string(profile.Availability),
		WorkPreference: string(profile.WorkPreference),
	}, nil
}
