// Package persona produces decoy chat replies. The core treats reply
// generation as an opaque collaborator; this package ships a template-backed
// implementation whose tone is steered by Big Five trait scores.
package persona

import (
	"context"
	"math/rand"
	"strings"
	"sync"
)

// TraitScores holds Big Five personality dimensions in [0, 1].
type TraitScores struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// Responder generates a persona reply to an incoming attacker message.
type Responder interface {
	Reply(ctx context.Context, traits TraitScores, incoming string, history []string) (string, error)
}

const (
	traitHigh = 0.7
	traitLow  = 0.3
)

var (
	anxiousPhrases  = []string{"I'm really worried about this...", "This makes me so anxious...", "I don't know what to do, I'm stressed..."}
	calmPhrases     = []string{"I'm not worried about this.", "Everything will be fine.", "No need to stress."}
	trustingPhrases = []string{"Of course I'll help!", "You seem very trustworthy!", "I believe you completely!"}
	skepticPhrases  = []string{"I'm not sure about this...", "Why should I trust you?", "This seems suspicious."}
	carefulPhrases  = []string{"Let me think about this carefully...", "I need to check the details...", "I should research this properly..."}
	carelessPhrases = []string{"Whatever, let's just do it!", "No need to overthink!", "Details don't matter."}
	excitedPhrases  = []string{"This is exciting!!", "Yesss let's do this!", "Wow that sounds amazing!"}
	reservedPhrases = []string{"Okay.", "I see.", "Interesting."}
	curiousPhrases  = []string{"What an interesting idea!", "This opens new possibilities!", "I love exploring new things like this!"}
)

const fallbackReply = "Tell me more about this."

// TemplateResponder assembles replies from trait-keyed phrase pools. Output
// is a pure function of (traits, seed sequence); inject a seeded source for
// deterministic tests.
type TemplateResponder struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTemplateResponder creates a responder with the given random source.
func NewTemplateResponder(src rand.Source) *TemplateResponder {
	if src == nil {
		src = rand.NewSource(rand.Int63())
	}
	return &TemplateResponder{rng: rand.New(src)}
}

// Reply builds a response whose emotional tone, trust, carefulness,
// enthusiasm and curiosity follow the five trait dimensions.
func (r *TemplateResponder) Reply(_ context.Context, traits TraitScores, _ string, _ []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var parts []string

	switch {
	case traits.Neuroticism > traitHigh:
		parts = append(parts, r.pick(anxiousPhrases))
	case traits.Neuroticism < traitLow:
		parts = append(parts, r.pick(calmPhrases))
	}

	switch {
	case traits.Agreeableness > traitHigh:
		parts = append(parts, r.pick(trustingPhrases))
	case traits.Agreeableness < traitLow:
		parts = append(parts, r.pick(skepticPhrases))
	}

	switch {
	case traits.Conscientiousness > traitHigh:
		parts = append(parts, r.pick(carefulPhrases))
	case traits.Conscientiousness < traitLow:
		parts = append(parts, r.pick(carelessPhrases))
	}

	switch {
	case traits.Extraversion > traitHigh:
		parts = append(parts, r.pick(excitedPhrases))
	case traits.Extraversion < traitLow:
		parts = append(parts, r.pick(reservedPhrases))
	}

	if traits.Openness > traitHigh {
		parts = append(parts, r.pick(curiousPhrases))
	}

	if len(parts) == 0 {
		parts = append(parts, fallbackReply)
	}
	reply := strings.Join(parts, " ")

	// High extraversion ends on an exclamation; high neuroticism trails off.
	if traits.Extraversion > traitHigh {
		reply = strings.TrimRight(reply, ".!") + "!"
	}
	if traits.Neuroticism > traitHigh {
		reply = strings.TrimRight(reply, "!.") + "..."
	}
	if traits.Conscientiousness < traitLow {
		words := strings.Fields(reply)
		if len(words) > 10 {
			reply = strings.Join(words[:8], " ") + "..."
		}
	}
	return reply, nil
}

func (r *TemplateResponder) pick(phrases []string) string {
	return phrases[r.rng.Intn(len(phrases))]
}

// TraitsFromText estimates trait scores from free text with simple keyword
// cues, defaulting every dimension to 0.5.
func TraitsFromText(text string) TraitScores {
	lower := strings.ToLower(text)
	scores := TraitScores{
		Openness:          0.5,
		Conscientiousness: 0.5,
		Extraversion:      0.5,
		Agreeableness:     0.5,
		Neuroticism:       0.5,
	}

	if containsAny(lower, "worry", "anxious", "stress") {
		scores.Neuroticism = 0.8
	}
	if containsAny(lower, "help", "kind", "trust") {
		scores.Agreeableness = 0.8
	}
	if containsAny(lower, "party", "social", "fun") {
		scores.Extraversion = 0.8
	}
	if containsAny(lower, "art", "creative", "imagine") {
		scores.Openness = 0.8
	}
	return scores
}

func containsAny(text string, words ...string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}
