package generator

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

func TestGenerateJobDescription(t *testing.T) {
	reply := `{"title":"Senior Go Engineer","description":"We build recruiting infrastructure.","requirements":["Go","MySQL"]}`
	g, err := NewContentGenerator(&mockChatModel{content: reply})
	require.NoError(t, err)

	jd, err := g.GenerateJobDescription(context.Background(), "Senior Go Engineer", "Acme", "backend team")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", jd.Title)
	assert.Equal(t, []string{"Go", "MySQL"}, jd.Requirements)
}

func TestGenerateJobDescriptionFillsTitle(t *testing.T) {
	reply := `{"description":"Some description.","requirements":[]}`
	g, err := NewContentGenerator(&mockChatModel{content: reply})
	require.NoError(t, err)

	jd, err := g.GenerateJobDescription(context.Background(), "Data Engineer", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer", jd.Title)
	assert.NotNil(t, jd.Requirements)
}

func TestGenerateJobDescriptionRequiresTitle(t *testing.T) {
	g, err := NewContentGenerator(&mockChatModel{content: "{}"})
	require.NoError(t, err)

	_, err = g.GenerateJobDescription(context.Background(), " ", "", "")
	require.Error(t, err)
}

func TestGenerateJobDescriptionMissingDescription(t *testing.T) {
	g, err := NewContentGenerator(&mockChatModel{content: `{"title":"X"}`})
	require.NoError(t, err)

	_, err = g.GenerateJobDescription(context.Background(), "X", "", "")
	require.Error(t, err)
}

func TestGenerateLinkedInPost(t *testing.T) {
	g, err := NewContentGenerator(&mockChatModel{content: "We are hiring a Senior Go Engineer in Berlin! Apply now. #golang"})
	require.NoError(t, err)

	job := &types.JobPosting{
		ID:          "j1",
		Title:       "Senior Go Engineer",
		Company:     "Acme",
		Location:    "Berlin",
		Description: "Backend infrastructure role",
	}

	post, err := g.GenerateLinkedInPost(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, post, "hiring")
}

func TestGenerateLinkedInPostUsesDedicatedModel(t *testing.T) {
	g, err := NewContentGenerator(
		&mockChatModel{content: `{"title":"X","description":"d","requirements":[]}`},
		WithLinkedInPostModel(&mockChatModel{content: "Join our Berlin team today!"}),
	)
	require.NoError(t, err)

	post, err := g.GenerateLinkedInPost(context.Background(), &types.JobPosting{
		ID:          "j1",
		Title:       "Go Engineer",
		Description: "Backend role",
	})
	require.NoError(t, err)
	assert.Equal(t, "Join our Berlin team today!", post)
}

func TestGenerateLinkedInPostNilJob(t *testing.T) {
	g, err := NewContentGenerator(&mockChatModel{content: "x"})
	require.NoError(t, err)

	_, err = g.GenerateLinkedInPost(context.Background(), nil)
	require.Error(t, err)
}
