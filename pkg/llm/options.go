package llm

// GenerationConfig contains model decoding parameters.
type GenerationConfig struct {
	// Sampling parameters
	Temperature float64 `json:"temperature"` // Creativity (0.0-2.0)
	TopK        int     `json:"topK"`        // Top-k sampling
	TopP        float64 `json:"topP"`        // Nucleus sampling threshold

	// Length parameters
	MaxOutputTokens int `json:"maxOutputTokens"` // Max tokens to generate
	CandidateCount  int `json:"candidateCount"`  // Number of candidates to return

	// Stop sequences
	StopSequences []string `json:"stopSequences,omitempty"` // Stop generation at these sequences
}

// Harm categories understood by the remote content-safety filter.
const (
	HarmCategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	HarmCategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	HarmCategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	HarmCategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	BlockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"
)

// SafetySetting sets the blocking threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultSafetySettings blocks medium-and-above harassment, hate speech,
// sexually explicit and dangerous content.
func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: HarmCategoryHarassment, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryHateSpeech, Threshold: BlockMediumAndAbove},
		{Category: HarmCategorySexuallyExplicit, Threshold: BlockMediumAndAbove},
		{Category: HarmCategoryDangerousContent, Threshold: BlockMediumAndAbove},
	}
}
