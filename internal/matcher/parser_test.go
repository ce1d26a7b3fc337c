package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrictJSONArray(t *testing.T) {
	p := NewResponseParser(false)

	results, err := p.Parse(`[{"id":"c1","score":92,"reasons":["React","5 yrs"]},{"id":"c2","score":75,"reasons":["TypeScript"]}]`)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].CandidateID)
	assert.Equal(t, 92, results[0].Score)
	assert.Equal(t, []string{"React", "5 yrs"}, results[0].Reasons)
}

func TestParseJSONWithCodeFence(t *testing.T) {
	p := NewResponseParser(false)

	raw := "```json\n[{\"id\":\"c1\",\"score\":80,\"reasons\":[\"Go\"]}]\n```"
	results, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 80, results[0].Score)
}

func TestParseJSONWithSurroundingProse(t *testing.T) {
	p := NewResponseParser(false)

	raw := `Here are the matches:
[{"id":"c3","score":71,"reasons":["Kubernetes"]}]
Let me know if you need more detail.`
	results, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c3", results[0].CandidateID)
}

func TestParseEmptyArrayIsNoMatches(t *testing.T) {
	p := NewResponseParser(false)

	results, err := p.Parse("[]")
	require.NoError(t, err)
	assert.Empty(t, results, "空数组是合法的无匹配结果")
}

func TestParseSingleReasonString(t *testing.T) {
	p := NewResponseParser(false)

	results, err := p.Parse(`[{"id":"c1","score":90,"reason":"strong React background"}]`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"strong React background"}, results[0].Reasons)
}

func TestParseFractionalScoreRounded(t *testing.T) {
	p := NewResponseParser(false)

	results, err := p.Parse(`[{"id":"c1","score":87.6,"reasons":[]}]`)
	require.NoError(t, err)
	assert.Equal(t, 88, results[0].Score)
}

func TestParseScoreOutOfRange(t *testing.T) {
	p := NewResponseParser(false)

	_, err := p.Parse(`[{"id":"c1","score":120,"reasons":[]}]`)
	require.Error(t, err)
	var pErr *ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestParseGarbageReturnsParseError(t *testing.T) {
	p := NewResponseParser(false)

	_, err := p.Parse("I think candidate one is pretty good overall!")
	require.Error(t, err)

	var pErr *ParseError
	require.ErrorAs(t, err, &pErr)
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestParseLegacyTextDisabledByDefault(t *testing.T) {
	p := NewResponseParser(false)

	raw := "ID: c1\nSCORE: 85\nREASON: solid match"
	_, err := p.Parse(raw)
	require.Error(t, err, "旧版文本格式默认关闭")
}

func TestParseLegacyTextWhenEnabled(t *testing.T) {
	p := NewResponseParser(true)

	raw := `ID: c1
SCORE: 85
REASON: solid React experience
ID: c2
SCORE: 60
REASON: junior profile
ID: c3
REASON: no score line for this one`

	results, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, results, 2, "缺少分数的候选被排除而非兜底")
	assert.Equal(t, "c1", results[0].CandidateID)
	assert.Equal(t, 85, results[0].Score)
	assert.Equal(t, []string{"solid React experience"}, results[0].Reasons)
	assert.Equal(t, "c2", results[1].CandidateID)
}

func TestParseIdempotent(t *testing.T) {
	p := NewResponseParser(false)
	raw := `[{"id":"c1","score":92,"reasons":["React"]},{"id":"c2","score":75,"reasons":["Vue"]}]`

	first, err := p.Parse(raw)
	require.NoError(t, err)
	second, err := p.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second, "同一输入必须产出完全相同的结果")
}

func TestParseSanitizesUnescapedQuotes(t *testing.T) {
	p := NewResponseParser(false)

	raw := `[{"id":"c1","score":90,"reasons":["built the "core" service"]}]`
	results, err := p.Parse(raw)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Reasons[0], "core")
}

func TestExtractJSONArrayNested(t *testing.T) {
	raw := `prefix [{"id":"c1","score":90,"reasons":["a","b"]}] suffix`
	assert.Equal(t, `[{"id":"c1","score":90,"reasons":["a","b"]}]`, extractJSONArray(raw))
	assert.Equal(t, "", extractJSONArray("no array here"))
}
