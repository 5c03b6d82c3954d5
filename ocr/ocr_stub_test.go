//go:build !ocr

package ocr

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestNewReturnsError(t *testing.T) {
	client, err := New()
	if err == nil {
		t.Error("Expected error from New() when OCR is disabled")
	}
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Expected ErrOCRNotEnabled, got: %v", err)
	}
	if client != nil {
		t.Error("Expected nil client when OCR is disabled")
	}
}

func TestCloseOnNilClient(t *testing.T) {
	var client *Client
	err := client.Close()
	if err != nil {
		t.Errorf("Close on nil client should not error: %v", err)
	}
}

func TestStubRecognize(t *testing.T) {
	var client Client
	_, err := client.Recognize(context.Background(), image.NewGray(image.Rect(0, 0, 1, 1)))
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("Recognize err = %v", err)
	}
}
