package instruct

import "github.com/gabriel-vasile/mimetype"

// Part represents a part of a message (text, image, file reference).
type Part struct {
	Type     string
	Text     string
	Data     []byte
	FileURI  string // for already-uploaded file references
	MimeType string // for images and files
}

// NewTextPart creates a new text part.
func NewTextPart(text string) *Part {
	return &Part{Type: "text", Text: text}
}

// NewImagePart creates a new image part with data and mime type.
func NewImagePart(data []byte, mimeType string) *Part {
	return &Part{Type: "image", Data: data, MimeType: mimeType}
}

// NewDataPart creates a binary part, sniffing the mime type from content.
func NewDataPart(data []byte) *Part {
	return &Part{Type: "image", Data: data, MimeType: mimetype.Detect(data).String()}
}

// NewFilePart creates a part that references an uploaded file URI.
func NewFilePart(fileURI, mimeType string) *Part {
	return &Part{Type: "file", FileURI: fileURI, MimeType: mimeType}
}

// Message represents a message in a conversation.
type Message struct {
	Role  string
	Parts []*Part
}

// NewUserMessage creates a new user message.
func NewUserMessage(parts ...*Part) *Message {
	return &Message{Role: "user", Parts: parts}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(parts ...*Part) *Message {
	return &Message{Role: "system", Parts: parts}
}
