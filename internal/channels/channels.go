// Package channels adapts a response to the delivery channel's
// capabilities before it leaves the service. Rich channels get image
// cards with a title line; text-only channels get the same content
// flattened to plain text.
package channels

import (
	"fmt"
	"strings"

	"github.com/antoniostano/lexkit/internal/lexapi"
)

const (
	ChannelLex = "lex"
	ChannelSMS = "sms"
)

// FormatForChannel rewrites the response's messages for one channel. An
// unrecognized channel formats like lex.
func FormatForChannel(resp *lexapi.Response, channel string) *lexapi.Response {
	out := *resp
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case ChannelSMS:
		out.Messages = formatSMS(resp.Messages)
	default:
		out.Messages = formatLex(resp.Messages)
	}
	return &out
}

// formatLex keeps cards intact but precedes each with a plain-text copy
// of its title, since some surfaces render the card body without it.
func formatLex(in lexapi.Messages) lexapi.Messages {
	out := make(lexapi.Messages, 0, len(in))
	for _, msg := range in {
		if card, ok := msg.(lexapi.ImageResponseCard); ok && card.Card.Title != "" {
			out = append(out, lexapi.PlainText{Content: card.Card.Title})
		}
		out = append(out, msg)
	}
	return out
}

// formatSMS flattens cards into the title plus a numbered option list.
func formatSMS(in lexapi.Messages) lexapi.Messages {
	out := make(lexapi.Messages, 0, len(in))
	for _, msg := range in {
		card, ok := msg.(lexapi.ImageResponseCard)
		if !ok {
			out = append(out, msg)
			continue
		}
		out = append(out, lexapi.PlainText{Content: flattenCard(card.Card)})
	}
	return out
}

func flattenCard(card lexapi.ImageCard) string {
	var b strings.Builder
	b.WriteString(card.Title)
	if card.Subtitle != "" {
		b.WriteByte('\n')
		b.WriteString(card.Subtitle)
	}
	for i, button := range card.Buttons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, button.Text)
	}
	return b.String()
}
