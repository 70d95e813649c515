package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mindvault/internal/domain"
	"mindvault/internal/metrics"
)

// Config points the client at the OCR service.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the OCR service's extract-by-url endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "http://localhost:8000"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: base, http: &http.Client{Timeout: timeout}}
}

type extractRequest struct {
	ImageURL string `json:"image_url"`
}

type extractResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// ExtractText never fails; an unreachable or failing service yields an empty,
// Failed extraction.
func (c *Client) ExtractText(ctx context.Context, imageURL string) domain.Extraction {
	text, err := c.extract(ctx, imageURL)
	metrics.OCRRequest(err != nil)
	if err != nil {
		log.Printf("ocr %s: %v", imageURL, err)
		return domain.Extraction{Failed: true}
	}
	return domain.Extraction{Text: text}
}

func (c *Client) extract(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(extractRequest{ImageURL: imageURL})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract-by-url", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ocr service: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ocr service status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	return out.Text, nil
}
