package bot

import (
	"context"

	"palmbot/internal/imaging"
)

type EventType string

const (
	EventImage EventType = "image"
	EventText  EventType = "text"
)

// Event is one inbound webhook event. Events of any other type are ignored
// without a reply.
type Event struct {
	Type       EventType `json:"type"`
	ReplyToken string    `json:"replyToken"`
	MessageID  string    `json:"messageId,omitempty"`
	Text       string    `json:"text,omitempty"`
}

// ImageSource fetches the raw bytes behind an image event.
type ImageSource interface {
	Fetch(ctx context.Context, messageID string) ([]byte, error)
}

// Replier delivers one outbound message. Delivery failures are logged and
// never retried; there is no second channel to report them on.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Classifier is the forward-pass port of the loaded model.
type Classifier interface {
	Predict(ctx context.Context, t *imaging.Tensor) (float32, error)
}
