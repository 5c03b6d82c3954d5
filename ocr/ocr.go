//go:build ocr

// Package ocr provides text recognition for score margins whose labels are
// not in the document's text layer.
//
// This package wraps the Tesseract OCR engine via gosseract. It requires
// Tesseract to be installed on the system, with the "jpn" traineddata for
// Japanese labels. On macOS, install via:
//
//	brew install tesseract tesseract-lang
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr tesseract-ocr-jpn
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps Tesseract for OCR operations. A Tesseract handle is not safe
// for concurrent use, so calls are serialized.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a new OCR client for the given languages ("eng" when none).
// The client should be closed when no longer needed to release resources.
func New(languages ...string) (*Client, error) {
	client := gosseract.NewClient()
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set languages %v: %w", languages, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.client.Close()
	c.client = nil
	return err
}

// Recognize returns the text lines Tesseract finds in img.
func (c *Client) Recognize(ctx context.Context, img image.Image) ([]Line, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, fmt.Errorf("ocr client is closed")
	}
	if err := c.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := c.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	lines := make([]Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Box: b.Box, Confidence: b.Confidence})
	}
	return lines, nil
}
