package format

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{PDF, "PDF"},
		{PNG, "PNG image"},
		{JPEG, "JPEG image"},
		{TIFF, "TIFF image"},
		{Office, "office document"},
		{HTML, "HTML"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"score.pdf", PDF},
		{"score.PDF", PDF},
		{"楽譜.Pdf", PDF},
		{"photo.jpeg", JPEG},
		{"photo.JPG", JPEG},
		{"scan.tiff", TIFF},
		{"page.png", PNG},
		{"setlist.docx", Office},
		{"setlist.odt", Office},
		{"index.htm", HTML},
		{"notes.txt", Unknown},
		{"score", Unknown},
		{"", Unknown},
		{"/path/to/file.pdf", PDF},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestEnsureExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"score.pdf", "score.pdf"},
		{"score.PDF", "score.PDF"},
		{"score", "score.pdf"},
		{"score.png", "score.png.pdf"},
	}
	for _, tt := range tests {
		if got := EnsureExtension(tt.name, PDF); got != tt.want {
			t.Errorf("EnsureExtension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
	if got := EnsureExtension("x", Unknown); got != "x" {
		t.Errorf("EnsureExtension with Unknown = %q", got)
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"PDF magic bytes", []byte("%PDF-1.4"), PDF},
		{"PDF after junk", append(bytes.Repeat([]byte{0}, 100), "%PDF-1.7"...), PDF},
		{"PDF beyond window", append(bytes.Repeat([]byte{' '}, 2000), "%PDF-1.7"...), Unknown},
		{"PNG", []byte("\x89PNG\r\n\x1a\n\x00\x00"), PNG},
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, JPEG},
		{"TIFF little endian", []byte("II*\x00\x08\x00"), TIFF},
		{"TIFF big endian", []byte("MM\x00*\x00\x08"), TIFF},
		{"ZIP needs inspection", []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00}, Unknown},
		{"HTML with DOCTYPE", []byte("<!DOCTYPE html>\n<html>"), HTML},
		{"HTML with whitespace", []byte("  \n  <html><head>"), HTML},
		{"XHTML", []byte(`<?xml version="1.0"?><html xmlns="x">`), HTML},
		{"empty data", []byte{}, Unknown},
		{"short data", []byte{0x50, 0x4B}, Unknown},
		{"text file", []byte("Hello, World!"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

func zipWith(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFromReader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"PDF", []byte("%PDF-1.4\n%%EOF"), PDF},
		{"PNG", []byte("\x89PNG\r\n\x1a\nrest"), PNG},
		{"word document", zipWith(t, "word/document.xml", "<w/>"), Office},
		{"opendocument", zipWith(t, "mimetype", "application/vnd.oasis.opendocument.text"), Office},
		{"plain zip", zipWith(t, "readme.txt", "hi"), Unknown},
		{"text", []byte("Hello, World! This is plain text."), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFromReader(bytes.NewReader(tt.data), int64(len(tt.data)))
			if err != nil {
				t.Fatalf("DetectFromReader() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFromReader() = %v, want %v", got, tt.want)
			}
		})
	}
}
