// Package format identifies uploaded files, so that anything other than a
// PDF score can be turned away with a useful message.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format is the kind of an uploaded file.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PDF indicates a PDF document.
	PDF
	// PNG indicates a PNG image, typically a photographed score.
	PNG
	// JPEG indicates a JPEG image.
	JPEG
	// TIFF indicates a TIFF image, common for scanner output.
	TIFF
	// Office indicates a word processor, spreadsheet or presentation file
	// (OOXML or OpenDocument).
	Office
	// HTML indicates an HTML document.
	HTML
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PDF:
		return "PDF"
	case PNG:
		return "PNG image"
	case JPEG:
		return "JPEG image"
	case TIFF:
		return "TIFF image"
	case Office:
		return "office document"
	case HTML:
		return "HTML"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PDF:
		return ".pdf"
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	case TIFF:
		return ".tif"
	case HTML:
		return ".html"
	default:
		return ""
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return PDF
	case ".png":
		return PNG
	case ".jpg", ".jpeg":
		return JPEG
	case ".tif", ".tiff":
		return TIFF
	case ".docx", ".xlsx", ".pptx", ".odt", ".ods", ".odp":
		return Office
	case ".html", ".htm":
		return HTML
	default:
		return Unknown
	}
}

// EnsureExtension appends the extension of f to name unless name already
// carries it.
func EnsureExtension(name string, f Format) string {
	ext := f.Extension()
	if ext == "" || Detect(name) == f {
		return name
	}
	return name + ext
}

// pdfWindow is how far into a file a PDF header is looked for; readers
// tolerate junk before it.
const pdfWindow = 1024

// DetectFromMagic checks file magic bytes to determine format.
// This provides more reliable detection than extension-based detection.
// ZIP archives report Unknown; DetectFromReader can tell them apart.
func DetectFromMagic(data []byte) Format {
	if bytes.Contains(data[:min(pdfWindow, len(data))], []byte("%PDF-")) {
		return PDF
	}
	if len(data) < 4 {
		return Unknown
	}

	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return TIFF
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return Unknown
	}

	if detectHTMLMagic(data) {
		return HTML
	}
	return Unknown
}

// detectHTMLMagic checks if the data looks like HTML content.
func detectHTMLMagic(data []byte) bool {
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) == 0 {
		return false
	}

	upper := strings.ToUpper(string(data[:min(512, len(data))]))
	if strings.HasPrefix(upper, "<!DOCTYPE HTML") || strings.HasPrefix(upper, "<HTML") {
		return true
	}
	// XML declaration followed by html-like content could be XHTML
	return strings.HasPrefix(upper, "<?XML") && strings.Contains(upper, "<HTML")
}

// DetectFromReader inspects the content to determine format. Unlike
// DetectFromMagic it recognizes office documents inside ZIP archives.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, pdfWindow)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if f := DetectFromMagic(magic); f != Unknown {
		return f, nil
	}
	if bytes.HasPrefix(magic, []byte("PK\x03\x04")) {
		return detectZIPFormat(r, size)
	}
	return Unknown, nil
}

// detectZIPFormat reports Office for OOXML and OpenDocument archives.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		switch {
		case f.Name == "mimetype":
			rc, err := f.Open()
			if err != nil {
				continue
			}
			data := make([]byte, 256)
			n, _ := io.ReadFull(rc, data)
			rc.Close()
			if strings.HasPrefix(string(data[:n]), "application/vnd.oasis.opendocument.") {
				return Office, nil
			}
		case strings.HasPrefix(f.Name, "word/"),
			strings.HasPrefix(f.Name, "xl/"),
			strings.HasPrefix(f.Name, "ppt/"):
			return Office, nil
		}
	}
	return Unknown, nil
}
