package matcher

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFailureSnippetTruncation(t *testing.T) {
	snippet := strings.Repeat("评分结果", 100)
	err := NewParseFailure("无法识别的响应格式", snippet)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.True(t, utf8.ValidString(pe.Snippet))
	assert.Equal(t, 200, utf8.RuneCountInString(pe.Snippet))
	assert.True(t, errors.Is(err, ErrParseFailed))
}

func TestParseFailureShortSnippetKeptIntact(t *testing.T) {
	err := NewParseFailure("缺少JSON数组", "not json at all")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "not json at all", pe.Snippet)
}
