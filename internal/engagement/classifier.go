package engagement

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/decoynet/decoy-chat-platform/internal/store"
)

// attackCategory pairs an attack type with its indicator keywords. The table
// is configuration data, kept as an ordered slice so ties between categories
// resolve to the first defined.
type attackCategory struct {
	Type     string
	Keywords []string
}

var attackCategories = []attackCategory{
	{"romance_scam", []string{"love", "miss you", "sweetheart", "marriage", "relationship", "meet", "feelings", "care"}},
	{"phishing", []string{"verify", "confirm", "click", "password", "account", "urgent", "action required", "confirm identity"}},
	{"financial_fraud", []string{"investment", "profit", "return", "fund", "transaction", "wire", "payment", "account number"}},
	{"identity_theft", []string{"ssn", "social security", "date of birth", "mother", "maiden name", "verify identity", "confirmation"}},
	{"prize_scam", []string{"won", "winner", "prize", "claim", "lottery", "congratulations", "lucky"}},
	{"tech_support", []string{"error", "malware", "virus", "update", "install", "download", "technical support", "computer"}},
	{"employment_scam", []string{"job", "hire", "position", "salary", "work from home", "urgent hire"}},
}

// AttackTypeCount is the number of known attack categories, used by analytics
// to normalize attack diversity.
const AttackTypeCount = 7

// Classify scores the combined lower-cased message text against every
// category. Confidence is the fraction of that category's keywords present;
// the highest-confidence category wins. An empty or matchless conversation
// classifies as unknown with zero confidence.
func Classify(messages []store.Message) (attackType string, confidence float64, techniques []string) {
	if len(messages) == 0 {
		return store.AttackTypeUnknown, 0, []string{}
	}

	parts := make([]string, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, strings.ToLower(msg.Text))
	}
	combined := strings.Join(parts, " ")

	bestType := store.AttackTypeUnknown
	bestConfidence := 0.0
	var bestMatches []string

	for _, category := range attackCategories {
		var matches []string
		for _, keyword := range category.Keywords {
			if strings.Contains(combined, keyword) {
				matches = append(matches, keyword)
			}
		}
		score := float64(len(matches)) / float64(len(category.Keywords))
		// Strict greater-than keeps the first defined category on ties.
		if score > bestConfidence {
			bestType = category.Type
			bestConfidence = score
			bestMatches = matches
		}
	}

	if bestConfidence == 0 {
		return store.AttackTypeUnknown, 0, []string{}
	}
	sort.Strings(bestMatches)
	return bestType, bestConfidence, bestMatches
}

// Severity maps confidence to a severity level, then applies a category
// floor: financial fraud and identity theft are never graded below high once
// they reach medium.
func Severity(confidence float64, attackType string) store.SeverityLevel {
	var severity store.SeverityLevel
	switch {
	case confidence >= 0.8:
		severity = store.SeverityCritical
	case confidence >= 0.6:
		severity = store.SeverityHigh
	case confidence >= 0.4:
		severity = store.SeverityMedium
	default:
		severity = store.SeverityLow
	}

	if severity == store.SeverityMedium && (attackType == "financial_fraud" || attackType == "identity_theft") {
		severity = store.SeverityHigh
	}
	return severity
}

// ClassifyConversation produces a timestamped classification record for the
// conversation's current message sequence.
func ClassifyConversation(conversation store.Conversation) store.AttackClassification {
	attackType, confidence, techniques := Classify(conversation.Messages)
	return store.AttackClassification{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID,
		AttackType:     attackType,
		Confidence:     confidence,
		Techniques:     techniques,
		Severity:       Severity(confidence, attackType),
		ClassifiedAt:   time.Now().UTC(),
	}
}
