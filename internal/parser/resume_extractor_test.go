package parser

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-match-go/internal/types"
)

type mockChatModel struct {
	content string
	err     error
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("mock 不支持 Stream")
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

const sampleResumeReply = `{
	"name": "Alice Zhang",
	"email": "alice@example.com",
	"phone": "",
	"location": "Berlin",
	"professional_summary": "Frontend engineer with React focus",
	"skills": ["React", "TypeScript"],
	"job_experience": [{"company": "Acme", "title": "Engineer", "start_date": "2020-01", "responsibilities": "Led frontend work"}],
	"education_history": [{"institution": "TU Berlin", "degree": "BSc", "field": "CS"}],
	"availability": "IMMEDIATE",
	"work_preference": "REMOTE"
}`

func TestExtractParsesWellFormedReply(t *testing.T) {
	e, err := NewResumeExtractor(&mockChatModel{content: sampleResumeReply})
	require.NoError(t, err)

	parsed, err := e.Extract(context.Background(), "Alice Zhang\nFrontend engineer...")
	require.NoError(t, err)
	assert.Equal(t, "Alice Zhang", parsed.Name)
	assert.Equal(t, "Berlin", parsed.Location)
	require.Len(t, parsed.Experience, 1)
	assert.Equal(t, "Acme", parsed.Experience[0]["company"])
}

func TestExtractToleratesFencesAndProse(t *testing.T) {
	reply := "Sure, here is the extraction:\n```json\n" + sampleResumeReply + "\n```"
	e, err := NewResumeExtractor(&mockChatModel{content: reply})
	require.NoError(t, err)

	parsed, err := e.Extract(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, "Alice Zhang", parsed.Name)
}

func TestExtractEmptyText(t *testing.T) {
	e, err := NewResumeExtractor(&mockChatModel{content: sampleResumeReply})
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "   ")
	require.Error(t, err)
}

func TestExtractNoJSONInReply(t *testing.T) {
	e, err := NewResumeExtractor(&mockChatModel{content: "I could not parse this resume."})
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "resume text")
	require.Error(t, err)
}

func TestExtractProfileNormalizes(t *testing.T) {
	e, err := NewResumeExtractor(&mockChatModel{content: sampleResumeReply})
	require.NoError(t, err)

	profile, err := e.ExtractProfile(context.Background(), "cand-1", "resume text")
	require.NoError(t, err)
	assert.Equal(t, "cand-1", profile.ID)
	assert.Equal(t, types.AvailabilityImmediate, profile.Availability)
	require.Len(t, profile.Experience, 1)
	// 字符串形态的 responsibilities 被规范化为单元素数组
	assert.Equal(t, []string{"Led frontend work"}, profile.Experience[0].Responsibilities)
}

func TestExtractJSONObjectBraceMatching(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`noise {"a":{"b":1}} tail`))
	assert.Equal(t, "", extractJSONObject("no object"))
}
