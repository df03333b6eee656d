// Package analytics aggregates engagement and classification results across
// conversations to measure how well decoy personas draw out and sustain
// malicious engagement. All functions operate on conversation snapshots and
// are safe for concurrent use.
package analytics

import (
	"sort"

	"github.com/decoynet/decoy-chat-platform/internal/engagement"
	"github.com/decoynet/decoy-chat-platform/internal/store"
)

// A conversation counts as successful once it holds at least two full
// exchanges (two attacker messages and two persona replies).
const successMessageThreshold = 4

// severityCaptureWeight feeds the threat capture score.
var severityCaptureWeight = map[store.SeverityLevel]float64{
	store.SeverityLow:      0.25,
	store.SeverityMedium:   0.5,
	store.SeverityHigh:     0.75,
	store.SeverityCritical: 1.0,
}

// severityThreatWeight feeds the threat-attractor ranking, which grades
// severity more steeply than the capture score.
var severityThreatWeight = map[store.SeverityLevel]float64{
	store.SeverityLow:      0.1,
	store.SeverityMedium:   0.3,
	store.SeverityHigh:     0.6,
	store.SeverityCritical: 1.0,
}

// ProfileSuccessMetrics summarizes how well one persona's conversations
// sustain engagement and capture threats.
type ProfileSuccessMetrics struct {
	TotalConversations    int      `json:"total_conversations"`
	ActiveConversations   int      `json:"active_conversations"`
	EndedConversations    int      `json:"ended_conversations"`
	SuccessRate           float64  `json:"success_rate"`
	AvgConversationLength float64  `json:"avg_conversation_length"`
	AvgEngagementTime     float64  `json:"avg_engagement_time"`
	TotalMessages         int      `json:"total_messages"`
	AvgResponseTime       *float64 `json:"avg_response_time"`
	ThreatCaptureScore    float64  `json:"threat_capture_score"`
}

// SuccessMetrics computes per-profile success metrics over a set of
// conversations.
func SuccessMetrics(conversations []store.Conversation) ProfileSuccessMetrics {
	if len(conversations) == 0 {
		return ProfileSuccessMetrics{}
	}

	out := ProfileSuccessMetrics{TotalConversations: len(conversations)}

	var engagementTimes []float64
	var responseTimes []float64
	successful := 0

	for _, conv := range conversations {
		switch conv.Status {
		case store.StatusActive:
			out.ActiveConversations++
		case store.StatusEnded:
			out.EndedConversations++
		}

		out.TotalMessages += len(conv.Messages)
		if len(conv.Messages) >= successMessageThreshold {
			successful++
		}

		// Engagement time counts both the first-to-last message span and the
		// explicit end duration when present.
		if len(conv.Messages) > 1 {
			span := conv.Messages[len(conv.Messages)-1].SentAt.Sub(conv.Messages[0].SentAt).Seconds()
			engagementTimes = append(engagementTimes, span)
		}
		if duration := conv.Duration(); duration != nil && *duration > 0 {
			engagementTimes = append(engagementTimes, *duration)
		}

		for i := 1; i < len(conv.Messages); i++ {
			if conv.Messages[i].Sender == store.SenderPersona && conv.Messages[i-1].Sender == store.SenderAttacker {
				responseTimes = append(responseTimes, conv.Messages[i].SentAt.Sub(conv.Messages[i-1].SentAt).Seconds())
			}
		}
	}

	out.SuccessRate = float64(successful) / float64(len(conversations))
	out.AvgConversationLength = float64(out.TotalMessages) / float64(len(conversations))
	out.AvgEngagementTime = mean(engagementTimes)
	if len(responseTimes) > 0 {
		avg := mean(responseTimes)
		out.AvgResponseTime = &avg
	}

	threatScore := 0.0
	threatCount := 0
	for _, conv := range conversations {
		c := engagement.ClassifyConversation(conv)
		if c.AttackType == store.AttackTypeUnknown {
			continue
		}
		threatScore += c.Confidence * severityCaptureWeight[c.Severity]
		threatCount++
	}
	if threatCount > 0 {
		out.ThreatCaptureScore = threatScore / float64(threatCount)
	}
	return out
}

// ProfileRanking pairs a profile with its composite success score.
type ProfileRanking struct {
	ProfileID      string                `json:"profile_id"`
	CompositeScore float64               `json:"composite_score"`
	Metrics        ProfileSuccessMetrics `json:"metrics"`
}

// RankProfilesBySuccess ranks personas by a weighted blend of success rate,
// engagement length and threat capture, capped at 1.0 and sorted descending.
// Output is deterministic for fixed inputs.
func RankProfilesBySuccess(profileConversations map[string][]store.Conversation) []ProfileRanking {
	profileIDs := make([]string, 0, len(profileConversations))
	for id := range profileConversations {
		profileIDs = append(profileIDs, id)
	}
	sort.Strings(profileIDs)

	rankings := make([]ProfileRanking, 0, len(profileIDs))
	for _, id := range profileIDs {
		m := SuccessMetrics(profileConversations[id])
		score := 0.3*m.SuccessRate + 0.2*(m.AvgConversationLength/10) + 0.5*m.ThreatCaptureScore
		if score > 1.0 {
			score = 1.0
		}
		rankings = append(rankings, ProfileRanking{
			ProfileID:      id,
			CompositeScore: score,
			Metrics:        m,
		})
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].CompositeScore > rankings[j].CompositeScore
	})
	return rankings
}

// HighRiskConversation flags a conversation whose classification reached high
// or critical severity.
type HighRiskConversation struct {
	ConversationID string              `json:"conversation_id"`
	AttackType     string              `json:"attack_type"`
	Severity       store.SeverityLevel `json:"severity"`
	Confidence     float64             `json:"confidence"`
	Techniques     []string            `json:"techniques"`
}

// HighRiskConversations filters conversations with high/critical severity,
// sorted descending by confidence.
func HighRiskConversations(conversations []store.Conversation) []HighRiskConversation {
	out := []HighRiskConversation{}
	for _, conv := range conversations {
		c := engagement.ClassifyConversation(conv)
		if c.Severity != store.SeverityHigh && c.Severity != store.SeverityCritical {
			continue
		}
		out = append(out, HighRiskConversation{
			ConversationID: conv.ID,
			AttackType:     c.AttackType,
			Severity:       c.Severity,
			Confidence:     c.Confidence,
			Techniques:     c.Techniques,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

// AttackTypeDistribution counts classified attack types across conversations.
func AttackTypeDistribution(conversations []store.Conversation) map[string]int {
	distribution := map[string]int{}
	for _, conv := range conversations {
		c := engagement.ClassifyConversation(conv)
		distribution[c.AttackType]++
	}
	return distribution
}

// SeverityDistribution counts severity levels across conversations. All four
// levels are present in the result even at zero.
func SeverityDistribution(conversations []store.Conversation) map[store.SeverityLevel]int {
	distribution := map[store.SeverityLevel]int{
		store.SeverityLow:      0,
		store.SeverityMedium:   0,
		store.SeverityHigh:     0,
		store.SeverityCritical: 0,
	}
	for _, conv := range conversations {
		c := engagement.ClassifyConversation(conv)
		distribution[c.Severity]++
	}
	return distribution
}

// BaitEffectiveness measures how well a persona attracts and engages
// attackers.
type BaitEffectiveness struct {
	ProfileID            string                      `json:"profile_id"`
	Effectiveness        float64                     `json:"effectiveness"`
	EngagementRate       float64                     `json:"engagement_rate"`
	AttackDiversity      int                         `json:"attack_diversity"`
	AvgDurationSeconds   float64                     `json:"avg_conversation_duration"`
	AvgSentiment         float64                     `json:"avg_sentiment"`
	TotalConversations   int                         `json:"total_conversations"`
	AttackDistribution   map[string]int              `json:"attack_distribution"`
	SeverityDistribution map[store.SeverityLevel]int `json:"severity_distribution"`
}

// Effectiveness blends engagement rate, attack diversity, duration and
// sentiment into a [0, 1] score for one persona.
func Effectiveness(profileID string, conversations []store.Conversation) BaitEffectiveness {
	if len(conversations) == 0 {
		return BaitEffectiveness{ProfileID: profileID}
	}

	engaged := 0
	var durations []float64
	var sentiments []float64
	for _, conv := range conversations {
		if len(conv.Messages) >= successMessageThreshold {
			engaged++
		}
		if duration := conv.Duration(); duration != nil {
			durations = append(durations, *duration)
		}
		sentiments = append(sentiments, engagement.ConversationSentiment(conv.Messages))
	}

	engagementRate := float64(engaged) / float64(len(conversations))
	attackDistribution := AttackTypeDistribution(conversations)
	diversity := 0
	for attackType, count := range attackDistribution {
		if attackType != store.AttackTypeUnknown && count > 0 {
			diversity++
		}
	}
	avgDuration := mean(durations)
	avgSentiment := mean(sentiments)

	durationHours := avgDuration / 3600
	if durationHours > 1 {
		durationHours = 1
	}
	score := 0.4*engagementRate +
		0.3*(float64(diversity)/engagement.AttackTypeCount) +
		0.2*durationHours +
		0.1*((avgSentiment+1)/2)
	if score > 1.0 {
		score = 1.0
	}

	return BaitEffectiveness{
		ProfileID:            profileID,
		Effectiveness:        score,
		EngagementRate:       engagementRate,
		AttackDiversity:      diversity,
		AvgDurationSeconds:   avgDuration,
		AvgSentiment:         avgSentiment,
		TotalConversations:   len(conversations),
		AttackDistribution:   attackDistribution,
		SeverityDistribution: SeverityDistribution(conversations),
	}
}

// ThreatAttractor ranks a persona by the cumulative severity-weighted
// confidence of the attacks its conversations captured.
type ThreatAttractor struct {
	ProfileID          string  `json:"profile_id"`
	ThreatScore        float64 `json:"threat_score"`
	CriticalThreats    int     `json:"critical_threats"`
	TotalConversations int     `json:"total_conversations"`
}

// TopThreatAttractors returns the topN personas by summed threat score.
func TopThreatAttractors(profileConversations map[string][]store.Conversation, topN int) []ThreatAttractor {
	if topN <= 0 {
		topN = 5
	}

	profileIDs := make([]string, 0, len(profileConversations))
	for id := range profileConversations {
		profileIDs = append(profileIDs, id)
	}
	sort.Strings(profileIDs)

	attractors := make([]ThreatAttractor, 0, len(profileIDs))
	for _, id := range profileIDs {
		conversations := profileConversations[id]
		attractor := ThreatAttractor{
			ProfileID:          id,
			TotalConversations: len(conversations),
		}
		for _, conv := range conversations {
			c := engagement.ClassifyConversation(conv)
			attractor.ThreatScore += c.Confidence * severityThreatWeight[c.Severity]
			if c.Severity == store.SeverityCritical {
				attractor.CriticalThreats++
			}
		}
		attractors = append(attractors, attractor)
	}

	sort.SliceStable(attractors, func(i, j int) bool {
		return attractors[i].ThreatScore > attractors[j].ThreatScore
	})
	if len(attractors) > topN {
		attractors = attractors[:topN]
	}
	return attractors
}

// Report is the cross-profile analytics rollup.
type Report struct {
	TotalProfiles        int                         `json:"total_profiles"`
	TotalConversations   int                         `json:"total_conversations"`
	ActiveConversations  int                         `json:"active_conversations"`
	EndedConversations   int                         `json:"ended_conversations"`
	TopPerformers        []ProfileRanking            `json:"top_performers"`
	ThreatAttractors     []ThreatAttractor           `json:"threat_attractors"`
	AttackDistribution   map[string]int              `json:"attack_distribution"`
	SeverityDistribution map[store.SeverityLevel]int `json:"severity_distribution"`
}

// GenerateReport builds the comprehensive analytics report for all profiles.
func GenerateReport(profileConversations map[string][]store.Conversation) Report {
	var all []store.Conversation
	for _, conversations := range profileConversations {
		all = append(all, conversations...)
	}

	report := Report{
		TotalProfiles:        len(profileConversations),
		TotalConversations:   len(all),
		TopPerformers:        RankProfilesBySuccess(profileConversations),
		ThreatAttractors:     TopThreatAttractors(profileConversations, 5),
		AttackDistribution:   AttackTypeDistribution(all),
		SeverityDistribution: SeverityDistribution(all),
	}
	if len(report.TopPerformers) > 5 {
		report.TopPerformers = report.TopPerformers[:5]
	}
	for _, conv := range all {
		switch conv.Status {
		case store.StatusActive:
			report.ActiveConversations++
		case store.StatusEnded:
			report.EndedConversations++
		}
	}
	return report
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
