package llm

// GenerateContentRequest represents a generateContent request body.
type GenerateContentRequest struct {
	Contents         []Content        `json:"contents"`         // Conversation, oldest first
	GenerationConfig GenerationConfig `json:"generationConfig"` // Decoding parameters
	SafetySettings   []SafetySetting  `json:"safetySettings,omitempty"`
}
