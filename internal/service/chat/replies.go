package chat

import (
	"fmt"
	"strings"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/analysis/intent"
)

// Fixed reply texts. The wording is part of the product surface; the
// front end matches on some of these strings.
const (
	completedReply = "🔒 This conversation has ended. Please click 'Clear Chat' or refresh the page to start a new chat."

	ratingRepromptReply = "Please rate your experience from 1-5."

	ratingThanksReply = "Thanks! Lastly, please share any brief feedback about your experience."

	closingReply = "✨ Thank you for your feedback! Chat session complete."

	schedulingFailedReply = "I wasn't able to schedule that call. Please try a different time, for example 'tomorrow at 2 PM'."

	// GenerationFailedReply is exported for the streaming handler, which
	// records it as the exchange outcome when the model stream fails.
	GenerationFailedReply = "I apologize, but I'm having trouble processing your request. Please try again or ask a different question."

	ratingPromptSuffix = "\n\nThank you for chatting with me! Please rate your experience (1-5)."
)

// topicResponses holds the canned replies behind the UI's topic buttons.
var topicResponses = map[string]string{
	"team report":         "Sharing a team-level behavior report!",
	"player summary":      "Sharing a player-level behavior summary!",
	"quarterback summary": "Sharing a quarterback behavior summary!",
	"routing tendencies":  "Sharing routing tendencies by top pass target!",
	"adot":                "Sharing average depth of target (aDOT) per receiver!",
	"about us":            "Sharing details about us!",
}

// greetingReply builds the fixed welcome message, addressing the visitor by
// name when the message introduced one.
func greetingReply(message string) string {
	greeting := "Hello!"
	if name := intent.ExtractName(message); name != "" {
		greeting = "Hello " + name + "!"
	}

	services := []string{
		"• Generating tactical summaries for any NFL team",
		"• Identifying play-calling tendencies and patterns",
		"• Analyzing player behavior (QBs, RBs, WRs)",
		"• Preparing game-specific scouting reports",
	}

	return greeting + "\n" +
		"Welcome to the NFL Play-by-Play Assistant. I'm your virtual analyst, here to help you with:\n" +
		strings.Join(services, "\n") +
		"\n\nHow can I assist you today?"
}

// schedulingSuccessReply confirms the booking and opens the rating gate.
func schedulingSuccessReply(eventTime string) string {
	return fmt.Sprintf("Perfect! Your consultation is scheduled for %s. Calendar invites sent.\n\nPlease rate your experience with me today (1-5).", eventTime)
}
