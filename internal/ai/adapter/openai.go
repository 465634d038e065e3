package adapter

import (
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// ToOpenAIMessages 将消息序列原样转换为 chat completion 消息，未知角色按 user 处理
func ToOpenAIMessages(messages []types.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, goopenai.ChatCompletionMessage{
			Role:    openAIRole(msg.Role),
			Content: msg.Content,
		})
	}
	return out
}

func openAIRole(role types.Role) string {
	switch role.Normalize() {
	case types.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case types.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}

// FromOpenAIResponse 取第一个 choice 的消息内容
//
// 没有 choice 或内容为空白时返回 types.ErrEmptyResponse。
func FromOpenAIResponse(resp goopenai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", types.ErrEmptyResponse
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", types.ErrEmptyResponse
	}
	return text, nil
}
