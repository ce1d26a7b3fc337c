package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"talent-match-go/internal/types"
)

func TestCandidateSpanAttributesMasksContactInfo(t *testing.T) {
	profile := &types.CandidateProfile{
		ID:       "cand-1",
		Name:     "张伟明",
		Email:    "zhang.weiming@example.com",
		Location: "Shanghai",
		Skills:   []string{"Go", "MySQL"},
	}

	attrs := candidateSpanAttributes("sub-1", profile)

	values := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		if kv.Value.Type() == attribute.STRING {
			values[string(kv.Key)] = kv.Value.AsString()
		}
	}

	require.Contains(t, values, "candidate.email")
	assert.NotEqual(t, profile.Email, values["candidate.email"])
	assert.Contains(t, values["candidate.email"], "*")

	require.Contains(t, values, "candidate.name")
	assert.NotEqual(t, profile.Name, values["candidate.name"])
	assert.Contains(t, values["candidate.name"], "*")

	// 非敏感字段保持原样
	assert.Equal(t, "Shanghai", values["candidate.location"])
	assert.Equal(t, "cand-1", values["candidate.id"])
}
