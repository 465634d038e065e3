package adapter

import (
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Garacc/stock-agent-cn/internal/ai/provider/types"
)

func TestToGooglePrompt(t *testing.T) {
	tests := []struct {
		name       string
		messages   []types.Message
		wantPrompt string
		wantSystem string
	}{
		{
			name: "system extracted and turns flattened",
			messages: []types.Message{
				types.NewSystemMessage("S"),
				types.NewUserMessage("U1"),
				types.NewAssistantMessage("A1"),
				types.NewUserMessage("U2"),
			},
			wantPrompt: "User: U1\nAssistant: A1\nUser: U2\n",
			wantSystem: "S",
		},
		{
			name: "last system message wins",
			messages: []types.Message{
				types.NewSystemMessage("first"),
				types.NewUserMessage("hi"),
				types.NewSystemMessage("second"),
			},
			wantPrompt: "User: hi\n",
			wantSystem: "second",
		},
		{
			name: "unknown role rendered as user",
			messages: []types.Message{
				{Role: "tool", Content: "data"},
			},
			wantPrompt: "User: data\n",
		},
		{
			name:       "empty",
			messages:   nil,
			wantPrompt: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToGooglePrompt(tt.messages)
			assert.Equal(t, tt.wantPrompt, got.Prompt)
			assert.Equal(t, tt.wantSystem, got.SystemInstruction)
			assert.Equal(t, tt.wantSystem != "", got.HasSystemInstruction())
			assert.NotContains(t, got.Prompt, "System:")
		})
	}
}

func TestToOpenAIMessages(t *testing.T) {
	messages := []types.Message{
		types.NewSystemMessage("S"),
		types.NewUserMessage("U1"),
		types.NewAssistantMessage("A1"),
		{Role: "function", Content: "F"},
	}

	got := ToOpenAIMessages(messages)
	require.Len(t, got, 4)
	assert.Equal(t, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: "S"}, got[0])
	assert.Equal(t, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: "U1"}, got[1])
	assert.Equal(t, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleAssistant, Content: "A1"}, got[2])
	assert.Equal(t, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: "F"}, got[3])

	// input untouched
	assert.Equal(t, types.Role("function"), messages[3].Role)
}

func TestFromOpenAIResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    goopenai.ChatCompletionResponse
		want    string
		wantErr error
	}{
		{
			name: "first choice",
			resp: goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Content: "ok-A"}},
				{Message: goopenai.ChatCompletionMessage{Content: "ignored"}},
			}},
			want: "ok-A",
		},
		{
			name:    "no choices",
			resp:    goopenai.ChatCompletionResponse{},
			wantErr: types.ErrEmptyResponse,
		},
		{
			name: "blank content",
			resp: goopenai.ChatCompletionResponse{Choices: []goopenai.ChatCompletionChoice{
				{Message: goopenai.ChatCompletionMessage{Content: "  \n"}},
			}},
			wantErr: types.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromOpenAIResponse(tt.resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGoogleResponse(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr error
	}{
		{
			name: "joins text parts and skips thoughts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Role: "model", Parts: []*genai.Part{
					{Text: "thinking...", Thought: true},
					{Text: "ok-"},
					{Text: "B"},
				}},
			}}},
			want: "ok-B",
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: types.ErrEmptyResponse,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: types.ErrEmptyResponse,
		},
		{
			name:    "candidate without content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			wantErr: types.ErrEmptyResponse,
		},
		{
			name: "only whitespace",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: " "}}},
			}}},
			wantErr: types.ErrEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGoogleResponse(tt.resp)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
