// Package transcript persists one durable summary row per chat session.
// The row layout mirrors the analytics export consumed downstream:
// Session_ID, user_1..user_20 / assistant_1..assistant_20 interleaved,
// Call_Scheduled, Rating, Feedback, Conversation_Complete.
package transcript

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Utkarsh-Jha-MSAIB/NFL-Insight-Assistant/internal/model/chat"
)

// MaxTurnPairs is the number of user/assistant slots persisted per session.
// Turns beyond this are dropped from persistence but still drive the FSM.
const MaxTurnPairs = 20

// Row is the derived per-session record. Deriving the same session twice
// without intervening mutation yields an identical Row.
type Row struct {
	SessionID      string
	UserTurns      []string
	AssistantTurns []string
	CallScheduled  bool
	Rating         int
	Feedback       string
	Complete       bool
}

// Derive builds a Row from a session snapshot. User and assistant turns are
// indexed independently: user_3 is the 3rd user turn regardless of how many
// assistant turns exist.
func Derive(sess *chat.Session) Row {
	row := Row{
		SessionID:     sess.ID,
		CallScheduled: sess.CallScheduled,
		Rating:        sess.Rating,
		Feedback:      sess.Feedback,
		Complete:      sess.Completed(),
	}

	for _, turn := range sess.Turns {
		switch turn.Role {
		case chat.RoleUser:
			if len(row.UserTurns) < MaxTurnPairs {
				row.UserTurns = append(row.UserTurns, flatten(turn.Content))
			}
		case chat.RoleAssistant:
			if len(row.AssistantTurns) < MaxTurnPairs {
				row.AssistantTurns = append(row.AssistantTurns, flatten(turn.Content))
			}
		}
	}

	return row
}

// Header returns the fixed CSV column set.
func Header() []string {
	header := make([]string, 0, 1+2*MaxTurnPairs+4)
	header = append(header, "Session_ID")
	for i := 1; i <= MaxTurnPairs; i++ {
		header = append(header, fmt.Sprintf("user_%d", i), fmt.Sprintf("assistant_%d", i))
	}
	header = append(header, "Call_Scheduled", "Rating", "Feedback", "Conversation_Complete")
	return header
}

// Record renders the row as a CSV record in Header order. Absent turns and an
// uncollected rating serialize as empty strings.
func (r Row) Record() []string {
	record := make([]string, 0, 1+2*MaxTurnPairs+4)
	record = append(record, r.SessionID)
	for i := 0; i < MaxTurnPairs; i++ {
		record = append(record, turnAt(r.UserTurns, i), turnAt(r.AssistantTurns, i))
	}

	rating := ""
	if r.Rating != 0 {
		rating = strconv.Itoa(r.Rating)
	}
	record = append(record, yesNo(r.CallScheduled), rating, flatten(r.Feedback), yesNo(r.Complete))
	return record
}

func turnAt(turns []string, i int) string {
	if i < len(turns) {
		return turns[i]
	}
	return ""
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// flatten collapses newlines to spaces so every value stays on one CSV line.
func flatten(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
