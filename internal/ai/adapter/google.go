package adapter

import (
	"strings"

	"google.golang.org/genai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

// GooglePrompt Google 协议族的请求形态：单个 prompt 加独立的 system instruction
type GooglePrompt struct {
	Prompt            string
	SystemInstruction string
}

// HasSystemInstruction 是否携带 system instruction
func (p GooglePrompt) HasSystemInstruction() bool {
	return p.SystemInstruction != ""
}

// ToGooglePrompt 将消息序列展平为单个 prompt
//
// system 消息不进入 prompt，多个 system 消息时最后一个生效。
// user/assistant 消息按原顺序渲染为 "User: ...\n" / "Assistant: ...\n"，未知角色按 User 渲染。
// 多轮结构只保留为角色前缀行。
func ToGooglePrompt(messages []types.Message) GooglePrompt {
	var (
		b      strings.Builder
		system string
	)
	for _, msg := range messages {
		switch msg.Role.Normalize() {
		case types.RoleSystem:
			system = msg.Content
		case types.RoleAssistant:
			b.WriteString("Assistant: ")
			b.WriteString(msg.Content)
			b.WriteByte('\n')
		default:
			b.WriteString("User: ")
			b.WriteString(msg.Content)
			b.WriteByte('\n')
		}
	}
	return GooglePrompt{Prompt: b.String(), SystemInstruction: system}
}

// FromGoogleResponse 拼接第一个候选的文本片段（跳过 thought 片段）
//
// 没有候选或文本为空白时返回 types.ErrEmptyResponse。
func FromGoogleResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", types.ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return "", types.ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", types.ErrEmptyResponse
	}
	return text, nil
}
