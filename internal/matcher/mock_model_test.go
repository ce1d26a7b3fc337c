package matcher

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// mockChatModel 测试用的LLM模型替身
// GenerateFunc 可按调用定制响应；CallCount 记录实际发起的调用次数
type mockChatModel struct {
	GenerateFunc func(ctx context.Context, messages []*schema.Message) (*schema.Message, error)
	CallCount    atomic.Int32
}

func (m *mockChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	m.CallCount.Add(1)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}
	return schema.AssistantMessage("[]", nil), nil
}

func (m *mockChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("mock 不支持 Stream")
}

func (m *mockChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

var _ model.ToolCallingChatModel = (*mockChatModel)(nil)

// fixedResponseModel 返回固定内容的模型替身
func fixedResponseModel(content string) *mockChatModel {
	return &mockChatModel{
		GenerateFunc: func(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
			return schema.AssistantMessage(content, nil), nil
		},
	}
}
