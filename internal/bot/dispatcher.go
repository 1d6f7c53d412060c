// Package bot routes inbound chat events through the palm-reading pipeline
// and guarantees exactly one reply attempt per recognized event.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"palmbot/internal/fortune"
	"palmbot/internal/imaging"
	"palmbot/internal/palm"
)

const (
	msgAnalysisFailed = "I couldn't read that palm. Please retake the photo with your whole palm in frame."
	msgGreeting       = "Hi! Send me a photo of your open palm and I'll read your fortune."
	msgHelp           = "Take a photo of your open palm in good light and send it here. I'll tell you which hand it is and what its lines say about you."
	msgDefault        = "Send me a palm photo to get a reading, or say \"help\"."
)

// maxConcurrentEvents bounds per-delivery fan-out.
const maxConcurrentEvents = 4

// Reading is the outcome of one pipeline run.
type Reading struct {
	Classification palm.Classification `json:"classification"`
	BasicReading   string              `json:"basicReading"`
	Fortune        string              `json:"fortune"`
}

type Dispatcher struct {
	classifier Classifier
	fortunes   *fortune.Orchestrator
	images     ImageSource
	replier    Replier
	log        *zap.SugaredLogger
}

func NewDispatcher(classifier Classifier, fortunes *fortune.Orchestrator, images ImageSource, replier Replier, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		classifier: classifier,
		fortunes:   fortunes,
		images:     images,
		replier:    replier,
		log:        log,
	}
}

// Dispatch processes one webhook delivery. Events run concurrently and
// independently: one event failing never suppresses the replies of the
// others.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) {
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentEvents)
	for _, ev := range events {
		g.Go(func() error {
			d.handle(ctx, ev)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	log := d.log.With("event_type", ev.Type, "request_id", uuid.NewString())
	switch ev.Type {
	case EventImage:
		d.handleImage(ctx, ev, log)
	case EventText:
		d.reply(ctx, ev.ReplyToken, textReply(ev.Text), log)
	default:
		log.Debugw("ignoring unrecognized event type")
	}
}

// handleImage runs the full pipeline and replies exactly once. Any stage
// failing before the reply collapses to the single fixed retake message.
func (d *Dispatcher) handleImage(ctx context.Context, ev Event, log *zap.SugaredLogger) {
	text := msgAnalysisFailed
	if reading, err := d.readPalm(ctx, ev.MessageID); err != nil {
		log.Warnw("palm analysis failed", "message_id", ev.MessageID, "error", err)
	} else {
		text = reading.Fortune
	}
	d.reply(ctx, ev.ReplyToken, text, log)
}

func (d *Dispatcher) readPalm(ctx context.Context, messageID string) (*Reading, error) {
	data, err := d.images.Fetch(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	return d.Analyze(ctx, data)
}

// Analyze is the shared pipeline body: preprocess, predict, classify, read,
// generate. The webhook path and the standalone predict endpoint both call
// it, so the two entry points cannot drift apart.
func (d *Dispatcher) Analyze(ctx context.Context, imageData []byte) (*Reading, error) {
	tensor, err := imaging.Preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	score, err := d.classifier.Predict(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	c := palm.Classify(score)
	basic := palm.BasicReading(c.Hand)
	return &Reading{
		Classification: c,
		BasicReading:   basic,
		Fortune:        d.fortunes.Fortune(ctx, c, basic),
	}, nil
}

func (d *Dispatcher) reply(ctx context.Context, replyToken, text string, log *zap.SugaredLogger) {
	if err := d.replier.Reply(ctx, replyToken, text); err != nil {
		log.Errorw("reply delivery failed", "error", err)
	}
}

func textReply(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case hasAny(t, "hello", "hi", "hey", "good morning", "good evening"):
		return msgGreeting
	case hasAny(t, "help", "how", "what do i do"):
		return msgHelp
	default:
		return msgDefault
	}
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
