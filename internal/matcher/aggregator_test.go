package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match-go/internal/types"
)

func candidateFixture(id string, availability types.Availability, pref types.WorkPreference) *types.CandidateProfile {
	return &types.CandidateProfile{
		ID:             id,
		Skills:         []string{},
		Experience:     []types.WorkExperience{},
		Education:      []types.EducationEntry{},
		Availability:   availability,
		WorkPreference: pref,
	}
}

func TestAggregateCandidatesSortsDescendingByDefault(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
		candidateFixture("c2", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
		candidateFixture("c3", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c2", Score: 75, Reasons: []string{"b"}},
		{CandidateID: "c1", Score: 92, Reasons: []string{"a"}},
		{CandidateID: "c3", Score: 75, Reasons: []string{"c"}},
	}

	results := agg.AggregateCandidates(candidates, scored, AggregateOptions{})
	require.Len(t, results, 3)
	assert.Equal(t, "c1", results[0].CandidateID)
	// 同分按id字典序，保证确定性
	assert.Equal(t, "c2", results[1].CandidateID)
	assert.Equal(t, "c3", results[2].CandidateID)
}

func TestAggregateCandidatesAscending(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
		candidateFixture("c2", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c1", Score: 92},
		{CandidateID: "c2", Score: 75},
	}

	results := agg.AggregateCandidates(candidates, scored, AggregateOptions{Direction: SortAscending})
	require.Len(t, results, 2)
	assert.Equal(t, "c2", results[0].CandidateID)
}

func TestAggregateCandidatesDropsUnknownIDs(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c1", Score: 90},
		{CandidateID: "ghost", Score: 99},
	}

	results := agg.AggregateCandidates(candidates, scored, AggregateOptions{})
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].CandidateID)
}

func TestAggregateCandidatesScoreCutoff(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
		candidateFixture("c2", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c1", Score: 90},
		{CandidateID: "c2", Score: 55},
	}

	results := agg.AggregateCandidates(candidates, scored, AggregateOptions{ScoreCutoff: 70})
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].CandidateID)
}

func TestAggregateCandidatesEnumFilters(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityImmediate, types.WorkPreferenceRemote),
		candidateFixture("c2", types.AvailabilityNotice, types.WorkPreferenceRemote),
		candidateFixture("c3", types.AvailabilityImmediate, types.WorkPreferenceOnsite),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c1", Score: 90},
		{CandidateID: "c2", Score: 90},
		{CandidateID: "c3", Score: 90},
	}

	results := agg.AggregateCandidates(candidates, scored, AggregateOptions{
		OnlyAvailableNow: true,
		OnlyRemote:       true,
	})
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].CandidateID)
}

func TestAggregateDoesNotMutateInputs(t *testing.T) {
	agg := NewRankAggregator()
	candidates := []*types.CandidateProfile{
		candidateFixture("c1", types.AvailabilityUnknown, types.WorkPreferenceUnknown),
	}
	scored := []ScoredCandidate{
		{CandidateID: "c1", Score: 90, Reasons: []string{"a"}},
		{CandidateID: "c1", Score: 80, Reasons: []string{"b"}},
	}
	original := make([]ScoredCandidate, len(scored))
	copy(original, scored)

	_ = agg.AggregateCandidates(candidates, scored, AggregateOptions{})
	assert.Equal(t, original, scored)
}

func TestAggregateJobs(t *testing.T) {
	agg := NewRankAggregator()
	jobs := []*types.JobPosting{
		{ID: "j1", Title: "A", Requirements: []string{}},
		{ID: "j2", Title: "B", Requirements: []string{}},
	}
	scored := []ScoredCandidate{
		{CandidateID: "j2", Score: 88},
		{CandidateID: "j1", Score: 95},
		{CandidateID: "unknown", Score: 99},
	}

	results := agg.AggregateJobs(jobs, scored, AggregateOptions{ScoreCutoff: 70})
	require.Len(t, results, 2)
	assert.Equal(t, "j1", results[0].CandidateID)
	assert.Equal(t, "j2", results[1].CandidateID)
}
