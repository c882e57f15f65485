package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/turfbook/chat-service/internal/model"
)

func formatMessage(msg model.Message, selfID string, now time.Time) string {
	who := msg.SenderID
	if who == "" {
		who = "unknown"
	}
	if selfID != "" && msg.SenderID == selfID {
		who = "you"
	} else if msg.SenderRole != "" {
		who = fmt.Sprintf("%s (%s)", who, msg.SenderRole)
	}

	when := "just now"
	if msg.CreatedAt != nil {
		when = humanize.RelTime(*msg.CreatedAt, now, "ago", "from now")
	}

	line := fmt.Sprintf("[%s] %s: %s", when, who, msg.Content)
	if msg.Read && msg.SenderID == selfID {
		line += " ✓"
	}
	return line
}

func formatPreview(p model.ConversationPreview, now time.Time) string {
	var b strings.Builder
	b.WriteString(p.ChatID)

	if p.LastMessageTimestamp != nil {
		fmt.Fprintf(&b, " (%s)", humanize.RelTime(*p.LastMessageTimestamp, now, "ago", "from now"))
	}
	if p.LastMessageContent != nil {
		fmt.Fprintf(&b, ": %s", *p.LastMessageContent)
	}
	return b.String()
}
