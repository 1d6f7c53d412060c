// Package fortune produces the final reading text, calling an external
// generation service once and degrading to a locally composed fallback.
package fortune

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"palmbot/internal/palm"
)

// Generator is the text-generation collaborator. Implementations get one
// attempt per fortune; retries are deliberately absent to stay inside the
// webhook response deadline.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

type Orchestrator struct {
	gen     Generator
	style   string
	timeout time.Duration
	log     *zap.SugaredLogger
}

// NewOrchestrator wires a generator (nil disables the upstream call) with the
// fixed style directive and the per-call timeout.
func NewOrchestrator(gen Generator, style string, timeout time.Duration, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{gen: gen, style: style, timeout: timeout, log: log}
}

// Fortune returns the generated reading, or the deterministic fallback when
// the generator is unavailable, fails, times out, or returns nothing usable.
// It never returns an error.
func (o *Orchestrator) Fortune(ctx context.Context, c palm.Classification, basicReading string) string {
	if o.gen == nil {
		return Fallback(c, basicReading)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	user := fmt.Sprintf("Hand: %s palm, %d%% confidence.\nBase reading: %s", c.Hand, c.Confidence, basicReading)
	text, err := o.gen.Generate(ctx, o.style, user)
	if err != nil {
		o.log.Warnw("fortune generation failed, using fallback", "error", err)
		return Fallback(c, basicReading)
	}
	if strings.TrimSpace(text) == "" {
		o.log.Warnw("fortune generation returned empty text, using fallback")
		return Fallback(c, basicReading)
	}
	return text
}

// Fallback composes a reading from local data only: hand label, confidence
// and the base reading. No network calls.
func Fallback(c palm.Classification, basicReading string) string {
	return fmt.Sprintf("This looks like your %s palm (%d%% confident). %s", c.Hand, c.Confidence, basicReading)
}
