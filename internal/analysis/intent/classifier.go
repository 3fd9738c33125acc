package intent

import (
	"strconv"
	"strings"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
)

// Intent tags how the engine should answer a turn.
type Intent string

const (
	Greeting       Intent = "greeting"
	ButtonShortcut Intent = "button_shortcut"
	RatingReply    Intent = "rating_reply"
	FeedbackReply  Intent = "feedback_reply"
	Scheduling     Intent = "scheduling_request"
	GeneralQuery   Intent = "general_query"
)

var greetingKeywords = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
}

var nameKeywords = []string{"i am", "my name", "this is"}

// topicLabels is the closed set of canned topic buttons the UI offers.
var topicLabels = []string{
	"team report", "player summary", "quarterback summary",
	"routing tendencies", "adot", "about us",
}

const topicPrefix = "tell me about "

var schedulingKeywords = []string{"tomorrow", "next", "schedule", "book"}

var timeIndicators = []string{"am", "pm", ":"}

// Classify maps an incoming message and the current conversation state to an
// intent. While the session is collecting a rating or feedback, every message
// is interpreted as the awaited reply type so the two-step gate cannot be
// bypassed. Otherwise greetings short-circuit the remaining checks.
func Classify(message string, state chat.State) Intent {
	switch state {
	case chat.StateAwaitingRating:
		return RatingReply
	case chat.StateAwaitingFeedback:
		return FeedbackReply
	}

	lower := strings.ToLower(strings.TrimSpace(message))

	if containsAny(lower, greetingKeywords) || containsAny(lower, nameKeywords) {
		return Greeting
	}

	if _, ok := Topic(message); ok {
		return ButtonShortcut
	}

	// Heuristic, not a parser: a scheduling keyword plus a time indicator.
	if containsAny(lower, schedulingKeywords) && containsAny(lower, timeIndicators) {
		return Scheduling
	}

	return GeneralQuery
}

// Topic returns the canonical topic label for a button-shortcut message.
// "tell me about X" yields X even when X is not a canned label; the engine
// falls back to generation for unknown topics.
func Topic(message string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))

	if strings.HasPrefix(lower, topicPrefix) {
		topic := strings.TrimSpace(strings.TrimPrefix(lower, topicPrefix))
		if topic != "" {
			return topic, true
		}
		return "", false
	}

	for _, label := range topicLabels {
		if lower == label {
			return label, true
		}
	}
	return "", false
}

// ParseRating parses a rating reply. Only integers in [1,5] are accepted.
func ParseRating(message string) (int, bool) {
	rating, err := strconv.Atoi(strings.TrimSpace(message))
	if err != nil || rating < 1 || rating > 5 {
		return 0, false
	}
	return rating, true
}

// ExtractName pulls a visitor name out of a name-introduction phrase such as
// "hi, I am Dana". Returns "" when no name follows the introduction keyword.
func ExtractName(message string) string {
	lower := strings.ToLower(message)
	for _, keyword := range nameKeywords {
		idx := strings.Index(lower, keyword)
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(lower[idx+len(keyword):])
		if rest != "" {
			return titleCase(rest)
		}
	}
	return ""
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
