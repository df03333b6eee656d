package analytics

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/decoynet/decoy-chat-platform/internal/store"
)

var engineBase = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// buildConversation creates a conversation with alternating attacker/persona
// messages spaced 10s apart, all carrying the given text.
func buildConversation(id, profileID, text string, messageCount int, status store.ConversationStatus) store.Conversation {
	conv := store.Conversation{
		ID:        id,
		ProfileID: profileID,
		Status:    status,
		StartedAt: engineBase,
	}
	for i := 0; i < messageCount; i++ {
		sender := store.SenderAttacker
		if i%2 == 1 {
			sender = store.SenderPersona
		}
		conv.Messages = append(conv.Messages, store.Message{
			ID:             fmt.Sprintf("%s-m%d", id, i),
			ConversationID: id,
			Sender:         sender,
			Text:           text,
			SentAt:         engineBase.Add(time.Duration(i) * 10 * time.Second),
		})
	}
	if status == store.StatusEnded {
		ended := engineBase.Add(time.Hour)
		conv.EndedAt = &ended
	}
	return conv
}

func TestSuccessMetricsEmpty(t *testing.T) {
	m := SuccessMetrics(nil)
	if m.TotalConversations != 0 || m.SuccessRate != 0 || m.AvgResponseTime != nil {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestSuccessMetrics(t *testing.T) {
	conversations := []store.Conversation{
		buildConversation("c1", "p1", "please verify your account password, urgent", 4, store.StatusActive),
		buildConversation("c2", "p1", "hello there", 2, store.StatusEnded),
	}

	m := SuccessMetrics(conversations)
	if m.TotalConversations != 2 || m.ActiveConversations != 1 || m.EndedConversations != 1 {
		t.Errorf("unexpected conversation counts: %+v", m)
	}
	if m.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %v", m.SuccessRate)
	}
	if m.TotalMessages != 6 || m.AvgConversationLength != 3 {
		t.Errorf("unexpected message stats: %+v", m)
	}
	if m.AvgResponseTime == nil || *m.AvgResponseTime != 10 {
		t.Errorf("expected 10s avg response time, got %v", m.AvgResponseTime)
	}
	// Only c1 classifies (phishing); c2 is unknown and excluded from capture.
	if m.ThreatCaptureScore <= 0 || m.ThreatCaptureScore > 1 {
		t.Errorf("threat capture score out of range: %v", m.ThreatCaptureScore)
	}
}

func TestSuccessMetricsEngagementTimeCountsSpanAndDuration(t *testing.T) {
	// An ended conversation contributes both the message span (30s) and the
	// explicit duration (3600s).
	conv := buildConversation("c1", "p1", "hi", 4, store.StatusEnded)

	m := SuccessMetrics([]store.Conversation{conv})
	if want := (30.0 + 3600.0) / 2; m.AvgEngagementTime != want {
		t.Errorf("expected avg engagement time %v, got %v", want, m.AvgEngagementTime)
	}
}

func TestRankProfilesBySuccess(t *testing.T) {
	profiles := map[string][]store.Conversation{
		"strong": {
			buildConversation("s1", "strong", "verify your account password urgent, click to confirm", 6, store.StatusActive),
			buildConversation("s2", "strong", "investment profit wire payment fund", 6, store.StatusActive),
		},
		"weak": {
			buildConversation("w1", "weak", "hello", 2, store.StatusActive),
		},
	}

	rankings := RankProfilesBySuccess(profiles)
	if len(rankings) != 2 {
		t.Fatalf("expected 2 rankings, got %d", len(rankings))
	}
	if rankings[0].ProfileID != "strong" {
		t.Errorf("expected strong profile first, got %s", rankings[0].ProfileID)
	}
	for _, r := range rankings {
		if r.CompositeScore < 0 || r.CompositeScore > 1 {
			t.Errorf("composite score out of range for %s: %v", r.ProfileID, r.CompositeScore)
		}
	}
	if rankings[0].CompositeScore <= rankings[1].CompositeScore {
		t.Error("rankings not sorted descending")
	}
}

func TestRankProfilesDeterministic(t *testing.T) {
	profiles := map[string][]store.Conversation{
		"b": {buildConversation("b1", "b", "hello", 2, store.StatusActive)},
		"a": {buildConversation("a1", "a", "hello", 2, store.StatusActive)},
		"c": {buildConversation("c1", "c", "hello", 2, store.StatusActive)},
	}

	first := RankProfilesBySuccess(profiles)
	for i := 0; i < 10; i++ {
		again := RankProfilesBySuccess(profiles)
		for j := range first {
			if again[j].ProfileID != first[j].ProfileID {
				t.Fatalf("ranking order unstable across runs: %v vs %v", again, first)
			}
		}
	}
	// Equal scores keep sorted-ID order.
	if first[0].ProfileID != "a" || first[1].ProfileID != "b" || first[2].ProfileID != "c" {
		t.Errorf("expected tied profiles in ID order, got %v", first)
	}
}

func TestHighRiskConversations(t *testing.T) {
	conversations := []store.Conversation{
		// 5 of 8 phishing keywords: verify, confirm, click, password, account.
		buildConversation("risky", "p1", "verify and confirm your password account, click now", 2, store.StatusActive),
		buildConversation("benign", "p1", "nice weather", 2, store.StatusActive),
	}

	highRisk := HighRiskConversations(conversations)
	if len(highRisk) != 1 {
		t.Fatalf("expected 1 high-risk conversation, got %d", len(highRisk))
	}
	if highRisk[0].ConversationID != "risky" || highRisk[0].AttackType != "phishing" {
		t.Errorf("unexpected high-risk record: %+v", highRisk[0])
	}
	if highRisk[0].Severity != store.SeverityHigh {
		t.Errorf("expected high severity, got %s", highRisk[0].Severity)
	}
}

func TestSeverityDistributionPreSeeded(t *testing.T) {
	distribution := SeverityDistribution(nil)
	for _, level := range []store.SeverityLevel{store.SeverityLow, store.SeverityMedium, store.SeverityHigh, store.SeverityCritical} {
		if count, ok := distribution[level]; !ok || count != 0 {
			t.Errorf("expected %s pre-seeded at 0, got %d (present=%v)", level, count, ok)
		}
	}
}

func TestEffectiveness(t *testing.T) {
	conversations := []store.Conversation{
		buildConversation("c1", "p1", "verify your account password urgent", 6, store.StatusEnded),
		buildConversation("c2", "p1", "investment profit wire", 4, store.StatusActive),
	}

	e := Effectiveness("p1", conversations)
	if e.ProfileID != "p1" || e.TotalConversations != 2 {
		t.Errorf("unexpected identity fields: %+v", e)
	}
	if e.EngagementRate != 1 {
		t.Errorf("expected engagement rate 1, got %v", e.EngagementRate)
	}
	if e.AttackDiversity != 2 {
		t.Errorf("expected 2 distinct attack types, got %d", e.AttackDiversity)
	}
	if e.Effectiveness < 0 || e.Effectiveness > 1 {
		t.Errorf("effectiveness out of range: %v", e.Effectiveness)
	}

	// 0.4*1 + 0.3*(2/7) + 0.2*(duration hours capped) + 0.1*((sent+1)/2).
	durationHours := e.AvgDurationSeconds / 3600
	if durationHours > 1 {
		durationHours = 1
	}
	want := 0.4*1 + 0.3*(2.0/7.0) + 0.2*durationHours + 0.1*((e.AvgSentiment+1)/2)
	if want > 1 {
		want = 1
	}
	if math.Abs(e.Effectiveness-want) > 1e-9 {
		t.Errorf("expected effectiveness %v, got %v", want, e.Effectiveness)
	}
}

func TestEffectivenessEmpty(t *testing.T) {
	e := Effectiveness("p1", nil)
	if e.ProfileID != "p1" || e.Effectiveness != 0 || e.TotalConversations != 0 {
		t.Errorf("expected zero effectiveness, got %+v", e)
	}
}

func TestTopThreatAttractors(t *testing.T) {
	profiles := map[string][]store.Conversation{
		"hot": {
			// 6 of 8 phishing keywords push confidence to critical territory.
			buildConversation("h1", "hot", "urgent: verify and confirm your password account, click the link, action required", 2, store.StatusActive),
		},
		"cold": {
			buildConversation("c1", "cold", "hello", 2, store.StatusActive),
		},
	}

	attractors := TopThreatAttractors(profiles, 5)
	if len(attractors) != 2 {
		t.Fatalf("expected 2 attractors, got %d", len(attractors))
	}
	if attractors[0].ProfileID != "hot" {
		t.Errorf("expected hot profile first, got %s", attractors[0].ProfileID)
	}
	if attractors[0].ThreatScore <= attractors[1].ThreatScore {
		t.Error("attractors not sorted by threat score")
	}

	if top := TopThreatAttractors(profiles, 1); len(top) != 1 {
		t.Errorf("expected topN to truncate, got %d entries", len(top))
	}
}

func TestGenerateReport(t *testing.T) {
	profiles := map[string][]store.Conversation{
		"p1": {
			buildConversation("c1", "p1", "verify your account password", 4, store.StatusActive),
			buildConversation("c2", "p1", "hello", 2, store.StatusEnded),
		},
		"p2": {
			buildConversation("c3", "p2", "you won the lottery prize, congratulations winner", 4, store.StatusActive),
		},
	}

	report := GenerateReport(profiles)
	if report.TotalProfiles != 2 || report.TotalConversations != 3 {
		t.Errorf("unexpected totals: %+v", report)
	}
	if report.ActiveConversations != 2 || report.EndedConversations != 1 {
		t.Errorf("unexpected status counts: %+v", report)
	}
	if len(report.TopPerformers) != 2 {
		t.Errorf("expected 2 ranked profiles, got %d", len(report.TopPerformers))
	}
	if len(report.ThreatAttractors) != 2 {
		t.Errorf("expected 2 threat attractors, got %d", len(report.ThreatAttractors))
	}

	total := 0
	for _, count := range report.AttackDistribution {
		total += count
	}
	if total != 3 {
		t.Errorf("attack distribution should cover all conversations, got %v", report.AttackDistribution)
	}
	if _, ok := report.SeverityDistribution[store.SeverityCritical]; !ok {
		t.Error("severity distribution should pre-seed all levels")
	}
}
