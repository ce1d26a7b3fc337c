package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"talent-match-go/internal/logger"
)

const (
	defaultAPIURL    = "https://api.openai.com/v1/chat/completions"
	defaultModelName = "gpt-4o-mini"
)

// CompletionServiceError 表示补全服务调用失败
// 携带上游的HTTP状态码与响应体，便于调用方决定是否重试
type CompletionServiceError struct {
	StatusCode int    // 上游HTTP状态码，网络错误时为0
	Message    string // 上游错误消息或响应体摘录
	Err        error  // 底层错误
}

func (e *CompletionServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("补全服务调用失败 (状态 %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("补全服务调用失败: %s", e.Message)
}

func (e *CompletionServiceError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode 返回上游状态码，供限流代理判断是否可重试
func (e *CompletionServiceError) HTTPStatusCode() int {
	return e.StatusCode
}

// --- OpenAI 兼容的请求/响应结构 ---

type chatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Id      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// OpenAIChatModel 通过 OpenAI 兼容接口访问补全服务
// 实现 eino 的 model.ToolCallingChatModel 接口，管线内只依赖该接口
type OpenAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature *float64
	maxTokens   int
	httpClient  *http.Client
}

// Option 定义 OpenAIChatModel 的配置选项
type Option func(*OpenAIChatModel)

// WithTemperature 设置采样温度
func WithTemperature(t float64) Option {
	return func(m *OpenAIChatModel) {
		m.temperature = &t
	}
}

// WithMaxTokens 设置单次补全的最大token数
func WithMaxTokens(n int) Option {
	return func(m *OpenAIChatModel) {
		m.maxTokens = n
	}
}

// WithHTTPClient 替换底层HTTP客户端（测试用）
func WithHTTPClient(c *http.Client) Option {
	return func(m *OpenAIChatModel) {
		m.httpClient = c
	}
}

// NewOpenAIChatModel 创建一个新的补全服务客户端
func NewOpenAIChatModel(apiKey, modelName, apiURL string, opts ...Option) (*OpenAIChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultAPIURL
	}

	m := &OpenAIChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info().Str("api_url", url).Str("model", mn).Msg("初始化补全服务客户端")
	return m, nil
}

// Generate 实现 model.ChatModel 接口，发起一次补全调用
// 这是管线中唯一的网络边界，所有外部失败都在此处产生
func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt
	}

	reqPayload := chatCompletionRequest{
		Model:       m.modelName,
		Messages:    messages,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Ctx(ctx).Debug().
		Str("api_url", m.apiURL).
		Str("model", m.modelName).
		Int("message_count", len(messages)).
		Msg("发送补全请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &CompletionServiceError{Message: "发送 HTTP 请求失败", Err: err}
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &CompletionServiceError{StatusCode: httpResp.StatusCode, Message: "读取响应体失败", Err: err}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &CompletionServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    truncateBody(bodyBytes),
		}
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, &CompletionServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    fmt.Sprintf("反序列化 API 响应失败: %s", truncateBody(bodyBytes)),
			Err:        err,
		}
	}

	if len(resp.Choices) == 0 {
		return nil, &CompletionServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    "API 返回空 choices",
		}
	}

	apiMessage := resp.Choices[0].Message
	content := ""
	if apiMessage.Content != nil {
		content = *apiMessage.Content
	}
	if strings.TrimSpace(content) == "" {
		return nil, &CompletionServiceError{
			StatusCode: httpResp.StatusCode,
			Message:    "API 返回空内容",
		}
	}

	role := schema.RoleType(apiMessage.Role)
	if role == "" {
		role = schema.Assistant
	}

	return &schema.Message{
		Role:    role,
		Content: content,
	}, nil
}

// Stream 实现 model.ChatModel 接口
// 匹配管线只使用单次请求/响应模式，流式暂不支持
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAIChatModel 的 Stream 方法未实现")
}

// BindTools 实现 model.ChatModel 接口
// 匹配管线不使用工具调用，保留空实现以满足接口
func (m *OpenAIChatModel) BindTools(tools []*schema.ToolInfo) error {
	if len(tools) > 0 {
		logger.Warn().Int("tool_count", len(tools)).Msg("OpenAIChatModel 不支持工具调用，忽略绑定")
	}
	return nil
}

// WithTools 实现 model.ToolCallingChatModel 接口
func (m *OpenAIChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if err := m.BindTools(tools); err != nil {
		return nil, err
	}
	return m, nil
}

// truncateBody 截断过长的响应体，避免错误信息里塞进整个payload
func truncateBody(b []byte) string {
	const maxLen = 512
	s := string(b)
	if len(s) > maxLen {
		return s[:maxLen] + "...(截断)"
	}
	return s
}

var _ model.ToolCallingChatModel = (*OpenAIChatModel)(nil)
