package lexapi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message content types used as the discriminator tag on the wire.
const (
	ContentTypePlainText         = "PlainText"
	ContentTypeImageResponseCard = "ImageResponseCard"
	ContentTypeCustomPayload     = "CustomPayload"
)

var ErrUnsupportedContentType = errors.New("unsupported message content type")

// Message is one element of a response's message list. Concrete types are
// PlainText, ImageResponseCard and CustomPayload, discriminated on the
// wire by the contentType field.
type Message interface {
	MessageContentType() string
}

// Messages serializes as a JSON array of tagged message objects.
type Messages []Message

type PlainText struct {
	Content string `json:"content"`
}

func (PlainText) MessageContentType() string { return ContentTypePlainText }

func (m PlainText) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
	}{m.Content, ContentTypePlainText})
}

type Button struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// NewButton builds a button whose value defaults to its label.
func NewButton(text string) Button {
	return Button{Text: text, Value: text}
}

type ImageCard struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

type ImageResponseCard struct {
	Card ImageCard `json:"imageResponseCard"`
}

func (ImageResponseCard) MessageContentType() string { return ContentTypeImageResponseCard }

func (m ImageResponseCard) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Card        ImageCard `json:"imageResponseCard"`
		ContentType string    `json:"contentType"`
	}{m.Card, ContentTypeImageResponseCard})
}

type CustomPayload struct {
	Content string `json:"content"`
}

func (CustomPayload) MessageContentType() string { return ContentTypeCustomPayload }

func (m CustomPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Content     string `json:"content"`
		ContentType string `json:"contentType"`
	}{m.Content, ContentTypeCustomPayload})
}

// ParseMessage decodes a single tagged message object.
func ParseMessage(raw json.RawMessage) (Message, error) {
	var env struct {
		ContentType string `json:"contentType"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid message envelope: %w", err)
	}

	switch env.ContentType {
	case ContentTypePlainText:
		var msg PlainText
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case ContentTypeImageResponseCard:
		var msg ImageResponseCard
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case ContentTypeCustomPayload:
		var msg CustomPayload
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, env.ContentType)
	}
}

// ParseMessages decodes a JSON array of tagged messages. It is used both
// for inbound payloads and to replay the serialized previous_message
// session attribute when reprompting.
func ParseMessages(raw []byte) (Messages, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("invalid message list: %w", err)
	}
	out := make(Messages, 0, len(items))
	for _, item := range items {
		msg, err := ParseMessage(item)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (m *Messages) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseMessages(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Messages) MarshalJSON() ([]byte, error) {
	// An empty message list must serialize as [] rather than null; the
	// platform rejects a null messages field.
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Message(m))
}

// EncodeMessages serializes a message list for storage in a session
// attribute (previous_message).
func EncodeMessages(messages Messages) string {
	raw, err := json.Marshal(messages)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// ButtonLabels collects the button labels of every image card in order.
// These are remembered across the turn so a bare "a" or "2" reply can be
// matched against what was shown.
func ButtonLabels(messages Messages) []string {
	var labels []string
	for _, msg := range messages {
		card, ok := msg.(ImageResponseCard)
		if !ok {
			continue
		}
		for _, b := range card.Card.Buttons {
			labels = append(labels, b.Text)
		}
	}
	return labels
}
