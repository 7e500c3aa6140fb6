package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/domain"
)

// Field is one text part of a multipart body. A slice keeps part order stable.
type Field struct {
	Name  string
	Value string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// MultipartBody encodes fields followed by one file part per image, all
// named fileField. It returns the body and its Content-Type.
func MultipartBody(fields []Field, fileField string, files []domain.ImageFile) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.Name, err)
		}
	}

	for i, file := range files {
		if file.Data == nil {
			return nil, "", fmt.Errorf("image %d has no data", i)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(fileField), quoteEscaper.Replace(file.FileName())))
		h.Set("Content-Type", file.MIMEType())
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part for image %d: %w", i, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to copy image %d: %w", i, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}
