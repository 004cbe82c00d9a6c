package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// Image is the in-memory upload sent to the model services.
type Image = model.Image

type formField struct {
	name  string
	value string
}

// buildForm writes the text fields followed by the image part.
func buildForm(fields []formField, fileField string, img Image) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, img.Name))
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create %s part: %w", fileField, err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", fmt.Errorf("write %s part: %w", fileField, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body, w.FormDataContentType(), nil
}

// postForm sends the form and returns the response body of a 2xx reply.
// Transport failures and non-2xx replies come back as CallError values.
func postForm(
	ctx context.Context,
	hc *http.Client,
	url, op, modelName string,
	body *bytes.Buffer,
	contentType string,
) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, upstream(op, modelName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, classifyStatus(op, modelName, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstream(op, modelName, resp.StatusCode, err)
	}
	return out, nil
}
