package matcher

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrValidationFailed  = errors.New("记录校验失败")
	ErrCompletionService = errors.New("补全服务调用失败")
	ErrParseFailed       = errors.New("响应解析失败")
	ErrCancelled         = errors.New("匹配调用已取消")
)

// MatchError 包含详细上下文的匹配管线错误
type MatchError struct {
	JobID   string
	Op      string
	BaseErr error
	Detail  string
}

func (e *MatchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 岗位:%s): %s", e.BaseErr, e.Op, e.JobID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 岗位:%s)", e.BaseErr, e.Op, e.JobID)
}

func (e *MatchError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *MatchError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// ParseError 表示补全响应在任何支持的格式下都无法解析
// 调用方应向用户呈现"搜索失败请重试"，绝不允许回退到伪造分数
type ParseError struct {
	Detail  string
	Snippet string // 响应文本摘录，便于排查
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("%s: %s (响应摘录: %q)", ErrParseFailed, e.Detail, e.Snippet)
	}
	return fmt.Sprintf("%s: %s", ErrParseFailed, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return ErrParseFailed
}

// 错误构造函数
func NewCompletionError(jobID, detail string, cause error) error {
	return &MatchError{
		JobID:   jobID,
		Op:      "completion",
		BaseErr: fmt.Errorf("%w: %w", ErrCompletionService, cause),
		Detail:  detail,
	}
}

func NewParseFailure(detail, snippet string) error {
	// 按rune截断，避免把多字节字符切成非法UTF-8
	const maxSnippet = 200
	if runes := []rune(snippet); len(runes) > maxSnippet {
		snippet = string(runes[:maxSnippet])
	}
	return &ParseError{Detail: detail, Snippet: snippet}
}
