package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrTimeout is returned when recognition does not finish in time.
var ErrTimeout = errors.New("ocr: recognition timed out")

// Line is one recognized line of text. Box is in the pixel coordinates of
// the image passed to the recognizer.
type Line struct {
	Text       string
	Box        image.Rectangle
	Confidence float64 // 0-100 as reported by the engine, 0 if unknown
}

// Recognizer turns an image into lines of text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Line, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image) ([]Line, error)

// Recognize calls f.
func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	return f(ctx, img)
}

type timeoutRecognizer struct {
	next    Recognizer
	timeout time.Duration
}

// WithTimeout bounds every call to next. The engine call runs in its own
// goroutine; on timeout its result is discarded when it eventually returns.
func WithTimeout(next Recognizer, timeout time.Duration) Recognizer {
	if timeout <= 0 {
		return next
	}
	return &timeoutRecognizer{next: next, timeout: timeout}
}

type result struct {
	lines []Line
	err   error
}

func (t *timeoutRecognizer) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		lines, err := t.next.Recognize(ctx, img)
		done <- result{lines, err}
	}()

	select {
	case r := <-done:
		return r.lines, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, t.timeout)
		}
		return nil, ctx.Err()
	}
}
