package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"rozysk-service/internal/config"
)

var ErrBatchNotConfigured = errors.New("batch service URL is not configured")

type batchRequest struct {
	Action      string `json:"action"`
	FileContent string `json:"fileContent"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
}

// BatchResult - ответ внешнего сервиса пакетной обработки.
type BatchResult struct {
	Success    bool   `json:"success"`
	TotalRows  int    `json:"totalRows"`
	PartsCount int    `json:"partsCount"`
	Error      string `json:"error,omitempty"`
}

// BatchClient отправляет готовые CSV во внешний сервис пакетной обработки
// (веб-приложение Apps Script), который раскладывает их для импорта в карты.
type BatchClient struct {
	url           string
	internalToken string
	httpClient    *http.Client
	maxRetries    int
	backoff       time.Duration
}

func NewBatchClient(cfg *config.Config) *BatchClient {
	return &BatchClient{
		url:           cfg.BatchService.URL,
		internalToken: cfg.BatchService.Token,
		httpClient: &http.Client{
			// обработка больших файлов на стороне сервиса может занимать минуты
			Timeout: 5 * time.Minute,
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
}

// Submit отправляет один CSV-файл и возвращает ответ сервиса.
// Ответ с success=false превращается в ошибку.
func (c *BatchClient) Submit(ctx context.Context, fileName string, content []byte) (*BatchResult, error) {
	if c.url == "" {
		return nil, ErrBatchNotConfigured
	}

	payload, err := json.Marshal(batchRequest{
		Action:      "process_file",
		FileContent: base64.StdEncoding.EncodeToString(content),
		FileName:    fileName,
		FileType:    "csv",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	// Повтор только при сетевых ошибках
	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := c.newRequest(ctx, payload)
		if err != nil {
			return nil, err
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			break
		}
		if attempt == c.maxRetries-1 {
			return nil, fmt.Errorf("failed to execute request after %d attempts: %w", c.maxRetries, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
	if resp == nil {
		return nil, fmt.Errorf("failed to execute request: %w", lastErr)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("batch service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result BatchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &result, fmt.Errorf("batch service rejected %q: %s", fileName, msg)
	}

	return &result, nil
}

func (c *BatchClient) newRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.internalToken != "" {
		req.Header.Set("X-Internal-Token", c.internalToken)
	}
	return req, nil
}
