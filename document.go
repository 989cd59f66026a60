package instruct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Asset represents any kind of input that can be converted to messages for
// extraction.
type Asset interface {
	CreateMessages(ctx context.Context, log *slog.Logger) ([]*Message, error)
}

// TextAsset represents a text document.
type TextAsset struct {
	Content string
}

func NewTextAsset(content string) *TextAsset {
	return &TextAsset{Content: content}
}

// CreateMessages implements Asset for text content.
func (t *TextAsset) CreateMessages(ctx context.Context, log *slog.Logger) ([]*Message, error) {
	if t.Content == "" {
		return nil, ErrEmptyDocument
	}
	return []*Message{NewUserMessage(NewTextPart(t.Content))}, nil
}

// DataAsset represents a binary document such as an image or a PDF. When
// MimeType is empty the type is sniffed from the content.
type DataAsset struct {
	Data     []byte
	MimeType string
}

func NewDataAsset(data []byte) *DataAsset {
	return &DataAsset{Data: data}
}

// CreateMessages implements Asset for binary content.
func (d *DataAsset) CreateMessages(ctx context.Context, log *slog.Logger) ([]*Message, error) {
	if len(d.Data) == 0 {
		return nil, errors.New("asset data is empty")
	}
	mt := d.MimeType
	if mt == "" {
		mt = mimetype.Detect(d.Data).String()
		log.Debug("Sniffed asset mime type", "mime_type", mt)
	}
	return []*Message{NewUserMessage(NewImagePart(d.Data, mt))}, nil
}

// MultiModalAsset represents a combination of text and media parts.
type MultiModalAsset struct {
	Text  string
	Media []*Part
}

// CreateMessages implements Asset for multi-modal content.
func (m *MultiModalAsset) CreateMessages(ctx context.Context, log *slog.Logger) ([]*Message, error) {
	parts := []*Part{}
	if m.Text != "" {
		parts = append(parts, NewTextPart(m.Text))
	}
	parts = append(parts, m.Media...)
	if len(parts) == 0 {
		return nil, errors.New("no content provided")
	}
	return []*Message{NewUserMessage(parts...)}, nil
}

// AssetsFrom wraps a plain document string as an asset list.
func AssetsFrom(content string) []Asset {
	return []Asset{NewTextAsset(content)}
}

// MIMETypeFromPath returns the MIME type for a file, detecting from content
// when the file exists and falling back to the extension otherwise.
func MIMETypeFromPath(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err == nil {
		return mt.String()
	}
	switch filepath.Ext(path) {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// collectMessages converts an asset list into conversation messages.
func collectMessages(ctx context.Context, assets []Asset, log *slog.Logger) ([]*Message, error) {
	var all []*Message
	for _, a := range assets {
		msgs, err := a.CreateMessages(ctx, log)
		if err != nil {
			return nil, fmt.Errorf("asset %T: %w", a, err)
		}
		all = append(all, msgs...)
	}
	return all, nil
}
