// Package disambiguation resolves ambiguous user input by comparing the
// NLU confidence scores of competing interpretations and, when no clear
// winner exists, asking the user to choose.
package disambiguation

// IntentCandidate is one intent the user might have meant, with the
// display information shown when asking them to choose.
type IntentCandidate struct {
	IntentName      string   `json:"intent_name"`
	ConfidenceScore float64  `json:"confidence_score"`
	DisplayName     string   `json:"display_name"`
	Description     string   `json:"description,omitempty"`
	RequiredSlots   []string `json:"required_slots,omitempty"`
}

// Result is the outcome of analyzing one request.
type Result struct {
	ShouldDisambiguate bool
	Candidates         []IntentCandidate
	ConfidenceScores   map[string]float64
}

// GenerationConfig controls optional rewriting of clarification prompts
// and button labels through a text-generation backend.
type GenerationConfig struct {
	Enabled          bool
	ModelID          string
	MaxTokens        int
	Temperature      float64
	SystemPrompt     string
	FallbackToStatic bool
}

// Config tunes when disambiguation triggers and what it says.
type Config struct {
	// ConfidenceThreshold is the minimum top score that avoids
	// disambiguation.
	ConfidenceThreshold float64

	// SimilarityThreshold is the maximum gap between the top two scores
	// that still counts as a tie.
	SimilarityThreshold float64

	// MinCandidates is how many scored intents must be present before
	// disambiguation can trigger.
	MinCandidates int

	// MaxCandidates caps how many options are shown to the user.
	MaxCandidates int

	// CustomIntentGroups names sets of related intents so a group-level
	// clarification message can cover all of them.
	CustomIntentGroups map[string][]string

	// CustomMessages overrides clarification text for specific candidate
	// combinations or groups.
	CustomMessages map[string]string

	Generation GenerationConfig
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.6,
		SimilarityThreshold: 0.15,
		MinCandidates:       2,
		MaxCandidates:       3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.MinCandidates == 0 {
		c.MinCandidates = d.MinCandidates
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = d.MaxCandidates
	}
	return c
}
