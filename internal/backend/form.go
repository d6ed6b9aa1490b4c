package backend

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"

	"github.com/reunite/portal/internal/attachment"
)

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	att   *attachment.Attachment
}

// Form is a multipart/form-data request body. Parts are written in insertion order.
type Form struct {
	fields []formField
	files  []formFile
}

// NewForm creates an empty multipart form.
func NewForm() *Form {
	return &Form{}
}

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// Attach appends a file part. A nil attachment is skipped.
func (f *Form) Attach(field string, att *attachment.Attachment) *Form {
	if att != nil {
		f.files = append(f.files, formFile{field: field, att: att})
	}
	return f
}

// HasFile reports whether a file part was attached under field.
func (f *Form) HasFile(field string) bool {
	for _, file := range f.files {
		if file.field == field {
			return true
		}
	}
	return false
}

// Encode writes the form and returns the body with its content type, boundary included.
func (f *Form) Encode() (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, field := range f.fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("could not write form field %s: %w", field.name, err)
		}
	}

	for _, file := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.att.Filename))
		h.Set("Content-Type", file.att.ContentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := part.Write(file.att.Data); err != nil {
			return nil, "", fmt.Errorf("could not copy file data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("could not close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
