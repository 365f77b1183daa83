package disambiguation

import (
	"sort"
	"strings"
	"unicode"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

// Analyzer decides whether a request is ambiguous enough to warrant
// asking the user to choose between intents.
type Analyzer struct {
	config Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{config: cfg.withDefaults()}
}

// Config returns the analyzer's effective configuration.
func (a *Analyzer) Config() Config { return a.config }

// ExtractIntentScores maps each interpreted intent to its NLU confidence.
// A missing confidence counts as zero.
func (a *Analyzer) ExtractIntentScores(req *lexapi.Request) map[string]float64 {
	scores := make(map[string]float64, len(req.Interpretations))
	for _, in := range req.Interpretations {
		if in.Intent.Name == "" {
			continue
		}
		score := 0.0
		if in.NLUConfidence != nil {
			score = *in.NLUConfidence
		}
		scores[in.Intent.Name] = score
	}
	return scores
}

// ShouldDisambiguate applies the threshold rules: too few scored intents
// never disambiguates; a weak top score or a near-tie between the top two
// does.
func (a *Analyzer) ShouldDisambiguate(scores map[string]float64) bool {
	if len(scores) < a.config.MinCandidates {
		return false
	}

	ranked := rankScores(scores)
	top := ranked[0].score
	if top < a.config.ConfidenceThreshold {
		return true
	}
	if len(ranked) > 1 && top-ranked[1].score <= a.config.SimilarityThreshold {
		return true
	}
	return false
}

// AnalyzeRequest runs the full analysis for one request.
func (a *Analyzer) AnalyzeRequest(req *lexapi.Request) Result {
	scores := a.ExtractIntentScores(req)
	result := Result{ConfidenceScores: scores}
	if !a.ShouldDisambiguate(scores) {
		return result
	}
	result.ShouldDisambiguate = true
	result.Candidates = a.generateCandidates(scores, req)
	return result
}

func (a *Analyzer) generateCandidates(scores map[string]float64, req *lexapi.Request) []IntentCandidate {
	ranked := rankScores(scores)
	if len(ranked) > a.config.MaxCandidates {
		ranked = ranked[:a.config.MaxCandidates]
	}

	candidates := make([]IntentCandidate, 0, len(ranked))
	for _, r := range ranked {
		candidates = append(candidates, IntentCandidate{
			IntentName:      r.name,
			ConfidenceScore: r.score,
			DisplayName:     DisplayName(r.name),
			RequiredSlots:   requiredSlots(req, r.name),
		})
	}
	return candidates
}

type rankedScore struct {
	name  string
	score float64
}

func rankScores(scores map[string]float64) []rankedScore {
	ranked := make([]rankedScore, 0, len(scores))
	for name, score := range scores {
		ranked = append(ranked, rankedScore{name: name, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].name < ranked[j].name
	})
	return ranked
}

func requiredSlots(req *lexapi.Request, intentName string) []string {
	for _, in := range req.Interpretations {
		if in.Intent.Name != intentName {
			continue
		}
		if len(in.Intent.Slots) == 0 {
			return nil
		}
		slots := make([]string, 0, len(in.Intent.Slots))
		for name := range in.Intent.Slots {
			slots = append(slots, name)
		}
		sort.Strings(slots)
		return slots
	}
	return nil
}

// DisplayName turns a technical intent name into user-facing text:
// "BookFlight" and "book_flight" both become "Book Flight".
func DisplayName(intentName string) string {
	var words []string
	for _, chunk := range strings.Split(intentName, "_") {
		words = append(words, splitCamel(chunk)...)
	}

	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func splitCamel(s string) []string {
	if s == "" {
		return nil
	}
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	return append(words, s[start:])
}
