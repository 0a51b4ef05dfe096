package extraction

import (
	"errors"
	"fmt"
	"strings"

	"sideline/internal/services/llm"
	"sideline/internal/store"
)

// rawClaim is one claim as the model sent it. Pointer fields distinguish
// absent values from zero values.
type rawClaim struct {
	Topic             string   `json:"topic"`
	Title             string   `json:"title"`
	Snippet           string   `json:"snippet"`
	Mentions          []string `json:"mentions"`
	Severity          string   `json:"severity"`
	Sentiment         string   `json:"sentiment"`
	RecommendedAction string   `json:"recommended_action"`
	Confidence        *float64 `json:"confidence"`
	AudioOffsetMS     *int64   `json:"audio_offset_ms"`
}

type envelope struct {
	Claims *[]rawClaim `json:"claims"`
}

var errMissingClaims = errors.New(`payload has no "claims" array`)

// decodeClaims accepts either {"claims": [...]} or a bare array.
func decodeClaims(content string) ([]rawClaim, error) {
	var env envelope
	envErr := llm.DecodeJSON(content, &env)
	if envErr == nil && env.Claims != nil {
		return *env.Claims, nil
	}
	var list []rawClaim
	if err := llm.DecodeJSON(content, &list); err == nil {
		return list, nil
	}
	if envErr != nil {
		return nil, envErr
	}
	return nil, errMissingClaims
}

// variantError reports a claim rejected for an unknown enum value.
type variantError struct {
	field string
	value string
}

func (e *variantError) Error() string {
	return fmt.Sprintf("unknown variant %q for %s", e.value, e.field)
}

func parseSeverity(value string) (store.Severity, error) {
	switch v := store.Severity(strings.TrimSpace(value)); v {
	case "":
		return "", nil
	case store.SeverityLow, store.SeverityMedium, store.SeverityHigh:
		return v, nil
	default:
		return "", &variantError{field: "severity", value: value}
	}
}

func parseSentiment(value string) (store.Sentiment, error) {
	switch v := store.Sentiment(strings.TrimSpace(value)); v {
	case "":
		return "", nil
	case store.SentimentPositive, store.SentimentNeutral, store.SentimentNegative:
		return v, nil
	default:
		return "", &variantError{field: "sentiment", value: value}
	}
}

// toClaim validates one raw claim. The topic tag decides the variant; an
// unknown tag rejects the claim.
func toClaim(raw rawClaim) (*store.Claim, error) {
	topic, ok := store.ParseTopic(strings.TrimSpace(raw.Topic))
	if !ok {
		return nil, &variantError{field: "topic", value: raw.Topic}
	}
	severity, err := parseSeverity(raw.Severity)
	if err != nil {
		return nil, err
	}
	sentiment, err := parseSentiment(raw.Sentiment)
	if err != nil {
		return nil, err
	}
	snippet := strings.TrimSpace(raw.Snippet)
	title := strings.TrimSpace(raw.Title)
	if snippet == "" && title == "" {
		return nil, errors.New("claim has neither title nor snippet")
	}
	if title == "" {
		title = truncate(snippet, 80)
	}
	if snippet == "" {
		snippet = title
	}
	claim := &store.Claim{
		Topic:             topic,
		Title:             title,
		Snippet:           snippet,
		RecommendedAction: strings.TrimSpace(raw.RecommendedAction),
		Mentions:          cleanMentions(raw.Mentions),
		Severity:          severity,
		Sentiment:         sentiment,
		Status:            store.ClaimExtracted,
	}
	if raw.AudioOffsetMS != nil && *raw.AudioOffsetMS >= 0 {
		offset := *raw.AudioOffsetMS
		claim.AudioOffsetMS = &offset
	}
	return claim, nil
}

func cleanMentions(mentions []string) []string {
	seen := make(map[string]struct{}, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		key := strings.ToLower(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
