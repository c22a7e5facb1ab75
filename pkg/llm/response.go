package llm

// FinishReason tells why the remote model stopped generating.
type FinishReason string

const (
	FinishReasonStop       FinishReason = "STOP"
	FinishReasonMaxTokens  FinishReason = "MAX_TOKENS"
	FinishReasonSafety     FinishReason = "SAFETY"
	FinishReasonRecitation FinishReason = "RECITATION"
	FinishReasonOther      FinishReason = "OTHER"
)

// Candidate is one generated answer.
type Candidate struct {
	Content      Content      `json:"content"`
	FinishReason FinishReason `json:"finishReason,omitempty"`
}

// UsageMetadata reports token accounting for a call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`     // Tokens in prompt
	CandidatesTokenCount int `json:"candidatesTokenCount"` // Generated tokens
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateContentResponse represents a successful generateContent response body.
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}
