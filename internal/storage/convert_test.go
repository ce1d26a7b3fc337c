package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match-go/internal/storage/models"
	"talent-match-go/internal/types"
)

func TestJobToPosting(t *testing.T) {
	m := &models.Job{
		JobID:            "job-1",
		JobTitle:         "Backend Engineer",
		Company:          "Acme",
		Location:         "Shanghai",
		JobType:          "Full-time",
		DescriptionText:  "Build services",
		RequirementsText: "Go; MySQL; 3+ years",
	}

	job, err := JobToPosting(m)
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, types.JobTypeFullTime, job.Type)
	assert.Equal(t, []string{"Go", "MySQL", "3+ years"}, job.Requirements)
}

func TestJobToPostingMissingTitle(t *testing.T) {
	m := &models.Job{JobID: "job-1", DescriptionText: "text"}

	_, err := JobToPosting(m)
	assert.Error(t, err)
}

func TestCandidateToProfile(t *testing.T) {
	m := &models.Candidate{
		CandidateID:    "cand-1",
		Name:           "Alice",
		Email:          "alice@example.com",
		ProfileSummary: "Senior Go developer",
		SkillsJSON:     []byte(`["Go","Kubernetes"]`),
		ExperienceJSON: []byte(`[{"company":"Acme","title":"Engineer","responsibilities":"built APIs"}]`),
		EducationJSON:  []byte(`[{"institution":"SJTU","degree":"BSc"}]`),
		Availability:   "IMMEDIATE",
		WorkPreference: "REMOTE",
	}

	profile, err := CandidateToProfile(m)
	require.NoError(t, err)

	assert.Equal(t, "cand-1", profile.ID)
	assert.Equal(t, []string{"Go", "Kubernetes"}, profile.Skills)
	assert.Equal(t, types.AvailabilityImmediate, profile.Availability)
	assert.Equal(t, types.WorkPreferenceRemote, profile.WorkPreference)

	// 字符串形式的职责被规范化为单元素列表
	require.Len(t, profile.Experience, 1)
	assert.Equal(t, []string{"built APIs"}, profile.Experience[0].Responsibilities)
}

func TestCandidateToProfileEmptyJSONColumns(t *testing.T) {
	m := &models.Candidate{CandidateID: "cand-2", Name: "Bob"}

	profile, err := CandidateToProfile(m)
	require.NoError(t, err)

	assert.NotNil(t, profile.Skills)
	assert.NotNil(t, profile.Experience)
	assert.NotNil(t, profile.Education)
	assert.Empty(t, profile.Skills)
}

func TestProfileToCandidateRoundTrip(t *testing.T) {
	profile := &types.CandidateProfile{
		ID:             "cand-3",
		Name:           "Carol",
		Email:          "carol@example.com",
		Skills:         []string{"Go"},
		Experience:     []types.WorkExperience{{Company: "Acme", Title: "Dev", Responsibilities: []string{"code"}}},
		Education:      []types.EducationEntry{},
		Availability:   types.AvailabilityNotice,
		WorkPreference: types.WorkPreferenceHybrid,
	}

	record, err := ProfileToCandidate(profile)
	require.NoError(t, err)

	assert.Equal(t, "cand-3", record.CandidateID)
	assert.Equal(t, "NOTICE_PERIOD", record.Availability)
	assert.JSONEq(t, `["Go"]`, string(record.SkillsJSON))

	back, err := CandidateToProfile(record)
	require.NoError(t, err)
	assert.Equal(t, profile.Skills, back.Skills)
	assert.Equal(t, profile.Availability, back.Availability)
}

func TestCandidateSetHashOrderIndependent(t *testing.T) {
	a := CandidateSetHash([]string{"c1", "c2", "c3"})
	b := CandidateSetHash([]string{"c3", "c1", "c2"})
	c := CandidateSetHash([]string{"c1", "c2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 40)
}
