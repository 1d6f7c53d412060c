// Package model wraps the ONNX palm classifier behind a process-wide adapter
// that is loaded once at startup and safe for concurrent prediction.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	ort "github.com/yalue/onnxruntime_go"

	"palmbot/internal/imaging"
)

// State reflects the adapter lifecycle. A failed load is permanent: the
// service keeps running degraded and rejects analysis until an operator
// intervenes.
type State int32

const (
	StateUnloaded State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

var (
	ErrModelNotLoaded = errors.New("model: classifier not loaded")
	ErrShapeMismatch  = errors.New("model: tensor shape does not match model input")
)

const (
	inputName  = "input"
	outputName = "output"
)

type Classifier struct {
	state   atomic.Int32
	session *ort.DynamicAdvancedSession
}

func New() *Classifier {
	return &Classifier{}
}

// Load initializes the ONNX runtime and opens a session for the model
// artifact. It is called once before the server accepts traffic; any failure
// moves the adapter to StateFailed with no retry.
func (c *Classifier) Load(modelPath, libraryPath string) error {
	if _, err := os.Stat(modelPath); err != nil {
		c.state.Store(int32(StateFailed))
		return fmt.Errorf("model artifact not found: %w", err)
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			c.state.Store(int32(StateFailed))
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName}, nil)
	if err != nil {
		c.state.Store(int32(StateFailed))
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}

	c.session = session
	c.state.Store(int32(StateReady))
	return nil
}

func (c *Classifier) State() State {
	return State(c.state.Load())
}

// Predict runs one forward pass and returns the probability of the right
// hand. Input and output tensors are created per call and destroyed on every
// exit path, so concurrent predictions share nothing but the read-only
// session.
func (c *Classifier) Predict(ctx context.Context, t *imaging.Tensor) (float32, error) {
	if c.State() != StateReady {
		return 0, ErrModelNotLoaded
	}
	if err := validateShape(t); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	input, err := ort.NewTensor(ort.NewShape(t.Shape()...), t.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.ArbitraryTensor{nil}
	if err := c.session.Run([]ort.ArbitraryTensor{input}, outputs); err != nil {
		return 0, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return 0, fmt.Errorf("%w: unexpected output tensor type", ErrShapeMismatch)
	}
	return scoreFromOutput(output.GetData())
}

func (c *Classifier) Close() {
	if c.session != nil {
		c.session.Destroy()
		c.session = nil
	}
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
	c.state.Store(int32(StateUnloaded))
}

func validateShape(t *imaging.Tensor) error {
	want := imaging.Side * imaging.Side * imaging.Channels
	if t == nil || len(t.Data) != want {
		got := 0
		if t != nil {
			got = len(t.Data)
		}
		return fmt.Errorf("%w: got %d values, want %d", ErrShapeMismatch, got, want)
	}
	return nil
}

// scoreFromOutput normalizes the model head to P(right hand). A single value
// is a sigmoid output; two values are the (left, right) pair, run through
// softmax when they are raw logits.
func scoreFromOutput(data []float32) (float32, error) {
	switch len(data) {
	case 1:
		return clamp01(data[0]), nil
	case 2:
		left, right := float64(data[0]), float64(data[1])
		sum := left + right
		if left < 0 || right < 0 || sum < 0.99 || sum > 1.01 {
			m := math.Max(left, right)
			el := math.Exp(left - m)
			er := math.Exp(right - m)
			return float32(er / (el + er)), nil
		}
		return clamp01(float32(right / sum)), nil
	default:
		return 0, fmt.Errorf("%w: model produced %d outputs", ErrShapeMismatch, len(data))
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
