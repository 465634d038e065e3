package types

import (
	"fmt"
	"strings"
)

// Family Provider 协议族
type Family int

const (
	FamilyUnknown Family = iota
	// FamilyOpenAICompatible OpenAI 兼容的 chat completion 接口
	FamilyOpenAICompatible
	// FamilyGoogleGenerative Google generateContent 接口
	FamilyGoogleGenerative
)

// String 返回协议族名称（同时用于配置文件）
func (f Family) String() string {
	switch f {
	case FamilyOpenAICompatible:
		return "openai"
	case FamilyGoogleGenerative:
		return "google"
	default:
		return "unknown"
	}
}

// ParseFamily 解析配置中的协议族名称
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "openai_compatible", "openai-compatible":
		return FamilyOpenAICompatible, nil
	case "google", "gemini", "google_generative":
		return FamilyGoogleGenerative, nil
	default:
		return FamilyUnknown, fmt.Errorf("unknown provider family %q", s)
	}
}

// Families 返回所有已知协议族
func Families() []Family {
	return []Family{FamilyOpenAICompatible, FamilyGoogleGenerative}
}
