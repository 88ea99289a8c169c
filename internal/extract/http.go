package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mikobrno/pdfkar/internal/config"
	"github.com/mikobrno/pdfkar/internal/logger"
)

// HTTPProcessor calls the external inference service over HTTP.
type HTTPProcessor struct {
	cfg        *config.Config
	httpClient *http.Client
	log        zerolog.Logger
}

func NewHTTPProcessor(cfg *config.Config) *HTTPProcessor {
	return &HTTPProcessor{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Processor.Timeout,
		},
		log: logger.Get(),
	}
}

func (p *HTTPProcessor) Process(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Processor.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.Processor.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.Processor.APIKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read processor response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.log.Warn().
			Int("status", resp.StatusCode).
			Str("filename", req.Filename).
			Msg("Processor returned non-OK status")
		return nil, fmt.Errorf("processor returned status %d", resp.StatusCode)
	}

	result, err := ParseResult(data)
	if err != nil {
		return nil, err
	}

	p.log.Debug().
		Str("filename", req.Filename).
		Int("field_count", len(result.Fields)).
		Float32("confidence", result.Confidence).
		Msg("Processor extraction succeeded")
	return result, nil
}
