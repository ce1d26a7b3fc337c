package matcher

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match-go/internal/types"
)

func TestBuildCandidateMatchMessages(t *testing.T) {
	b := NewPromptBuilder(70)

	job := &types.JobPosting{
		ID:           "j1",
		Title:        "Senior React Developer",
		Description:  "Build our frontend platform",
		Requirements: []string{"5+ years React", "TypeScript"},
	}
	candidates := []*types.CandidateProfile{
		{
			ID:           "c1",
			Name:         "Alice Zhang",
			Email:        "alice@example.com",
			Phone:        "+1-555-0100",
			Summary:      "Frontend engineer",
			Skills:       []string{"React", "TypeScript"},
			Experience:   []types.WorkExperience{},
			Education:    []types.EducationEntry{},
			Availability: types.AvailabilityImmediate,
		},
	}

	messages, err := b.BuildCandidateMatch(job, candidates)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, schema.System, messages[0].Role)
	assert.Contains(t, messages[0].Content, "JSON array")
	assert.Contains(t, messages[0].Content, "Omit any candidate scoring below 70", "截断策略必须写入Prompt")
	assert.Contains(t, messages[0].Content, "0-100")

	assert.Equal(t, schema.User, messages[1].Role)
	assert.Contains(t, messages[1].Content, "Senior React Developer")
	assert.Contains(t, messages[1].Content, `"c1"`)
	assert.Contains(t, messages[1].Content, "React")
	// 联系方式不进入Prompt
	assert.NotContains(t, messages[1].Content, "alice@example.com")
	assert.NotContains(t, messages[1].Content, "+1-555-0100")
}

func TestBuildCandidateMatchNilJob(t *testing.T) {
	b := NewPromptBuilder(70)
	_, err := b.BuildCandidateMatch(nil, nil)
	require.Error(t, err)
}

func TestBuildJobSearchMessages(t *testing.T) {
	b := NewPromptBuilder(60)

	profile := &types.CandidateProfile{
		ID:         "cand-1",
		Skills:     []string{"Go", "Kubernetes"},
		Experience: []types.WorkExperience{},
		Education:  []types.EducationEntry{},
	}
	jobs := []*types.JobPosting{
		{ID: "j1", Title: "Platform Engineer", Requirements: []string{"Go"}},
		{ID: "j2", Title: "SRE", Requirements: []string{"Kubernetes"}},
	}

	messages, err := b.BuildJobSearch(profile, jobs)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Content, "Omit any job scoring below 60")
	assert.Contains(t, messages[1].Content, "Platform Engineer")
	assert.Contains(t, messages[1].Content, `"j2"`)
}

func TestNewPromptBuilderClampsCutoff(t *testing.T) {
	assert.Equal(t, 70, NewPromptBuilder(0).ScoreCutoff())
	assert.Equal(t, 70, NewPromptBuilder(150).ScoreCutoff())
	assert.Equal(t, 80, NewPromptBuilder(80).ScoreCutoff())
}
