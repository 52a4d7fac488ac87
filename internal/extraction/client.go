package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"

	"gradlist/internal"
	"gradlist/internal/config"
)

// Error is a technical extraction failure. A backend that answers
// {success:false, reason} is not an Error: that is a legitimate
// negative result and comes back as an unsuccessful ExtractionResult
// with a nil error.
type Error struct {
	Kind    internal.FailureKind
	Msg     string
	Raw     string
	Cleaned string
}

func (e *Error) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s raw=%q cleaned=%q", e.Kind, e.Msg, e.Raw, e.Cleaned)
}

func Kind(err error) internal.FailureKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

func mimeForFilename(filename string) string {
	if m, ok := mimeByExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return m
	}
	return "image/jpeg"
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ExtractTimeoutMs) * time.Millisecond},
	}
}

// ExtractFromFile sends a document to the extraction backend. The
// target string (school+department+degree, no separator) tells the
// backend whose namelist to look for. PDFs are reduced to their text
// layer locally; a scanned PDF with no text layer fails fast instead of
// being shipped as binary. No retries happen at this layer.
func (c *Client) ExtractFromFile(ctx context.Context, target, filename string, blob []byte) (internal.ExtractionResult, error) {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		text, err := pdfTextLayer(blob)
		if err != nil || text == "" {
			return internal.ExtractionResult{}, &Error{Kind: internal.FailNoTextLayer, Msg: "pdf has no extractable text layer"}
		}
		return c.ExtractFromText(ctx, target, text)
	}

	return c.call(ctx, map[string]any{
		"target":   target,
		"model":    c.cfg.ExtractModel,
		"mimeType": mimeForFilename(filename),
		"data":     base64.StdEncoding.EncodeToString(blob),
	})
}

// ExtractFromText sends already-extracted plain text (a PDF text layer
// or a reduced web page) to the backend.
func (c *Client) ExtractFromText(ctx context.Context, target, text string) (internal.ExtractionResult, error) {
	return c.call(ctx, map[string]any{
		"target": target,
		"model":  c.cfg.ExtractModel,
		"text":   text,
	})
}

func (c *Client) call(ctx context.Context, payload map[string]any) (internal.ExtractionResult, error) {
	if strings.TrimSpace(c.cfg.ExtractAPIBaseURL) == "" {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailTransport, Msg: "missing EXTRACT_API_BASE_URL"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailTransport, Msg: err.Error()}
	}

	url := strings.TrimRight(c.cfg.ExtractAPIBaseURL, "/") + "/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailTransport, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.cfg.ExtractAPIToken) != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.ExtractAPIToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailTransport, Msg: err.Error()}
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailTransport, Msg: readErr.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return internal.ExtractionResult{}, &Error{
			Kind: internal.FailTransport,
			Msg:  fmt.Sprintf("backend status %d", resp.StatusCode),
			Raw:  snippet(string(raw)),
		}
	}

	return decodeResponse(string(raw))
}

// decodeResponse validates the backend's free-text answer against the
// strict two-shape contract: {success:true, names, names_available} or
// {success:false, reason}. Anything else is malformed, never a crash.
func decodeResponse(raw string) (internal.ExtractionResult, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return internal.ExtractionResult{}, &Error{Kind: internal.FailEmptyResponse, Msg: "backend returned empty response"}
	}

	cleaned, ok := firstJSONObject(trimmed)
	if !ok {
		return internal.ExtractionResult{}, &Error{
			Kind: internal.FailMalformedResponse,
			Msg:  "no JSON object in response",
			Raw:  snippet(trimmed),
		}
	}
	cleaned = sanitizeControl(cleaned)

	var shape struct {
		Success        *bool    `json:"success"`
		Names          []string `json:"names"`
		NamesAvailable *bool    `json:"names_available"`
		Reason         string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &shape); err != nil {
		return internal.ExtractionResult{}, &Error{
			Kind:    internal.FailMalformedResponse,
			Msg:     "invalid JSON: " + err.Error(),
			Raw:     snippet(trimmed),
			Cleaned: snippet(cleaned),
		}
	}
	if shape.Success == nil {
		return internal.ExtractionResult{}, &Error{
			Kind:    internal.FailMalformedResponse,
			Msg:     "missing success field",
			Raw:     snippet(trimmed),
			Cleaned: snippet(cleaned),
		}
	}

	if !*shape.Success {
		return internal.ExtractionResult{Success: false, FailureReason: shape.Reason}, nil
	}

	if shape.Names == nil {
		return internal.ExtractionResult{}, &Error{
			Kind:    internal.FailMalformedResponse,
			Msg:     "success response without names",
			Raw:     snippet(trimmed),
			Cleaned: snippet(cleaned),
		}
	}
	hasNames := true
	if shape.NamesAvailable != nil {
		hasNames = *shape.NamesAvailable
	}
	return internal.ExtractionResult{Success: true, Names: shape.Names, HasNames: hasNames}, nil
}

func pdfTextLayer(blob []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
