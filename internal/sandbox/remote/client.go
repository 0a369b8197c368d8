// Package remote executes submissions through a hosted compile-and-run
// HTTP provider.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"

	"codearena/internal/lang"
	"codearena/internal/sandbox"
	"codearena/internal/sandbox/result"
)

// Config carries the provider credentials and endpoint.
type Config struct {
	BaseURL         string        `yaml:"baseUrl"`
	ClientID        string        `yaml:"clientId"`
	ClientSecret    string        `yaml:"clientSecret"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	MaxPollAttempts int           `yaml:"maxPollAttempts"`
	PollInterval    time.Duration `yaml:"pollInterval"`
}

func (c *Config) setDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.MaxPollAttempts == 0 {
		c.MaxPollAttempts = 10
	}
	if c.PollInterval == 0 {
		c.PollInterval = 500 * time.Millisecond
	}
}

// languageIDs maps our languages onto the provider's numeric ids and
// version indexes. JavaScript is deliberately absent, it always runs
// locally.
var languageIDs = map[lang.Language]struct {
	id           int
	versionIndex string
}{
	lang.Python: {id: 116, versionIndex: "4"},
	lang.Java:   {id: 4, versionIndex: "4"},
	lang.CPP:    {id: 77, versionIndex: "5"},
}

type submitRequest struct {
	Script       string `json:"script"`
	Language     int    `json:"language"`
	VersionIndex string `json:"versionIndex"`
	Stdin        string `json:"stdin,omitempty"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type providerResponse struct {
	StatusCode int    `json:"statusCode"`
	Output     string `json:"output"`
	Error      string `json:"error"`
	Memory     string `json:"memory"`
	CPUTime    string `json:"cpuTime"`
	RequestID  string `json:"requestId"`
	Status     string `json:"status"`
}

// Client is a sandbox.Runner backed by the remote provider.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a provider client. A nil httpClient gets a default
// one bound to the configured request timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.setDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Supports reports whether the provider can run the language.
func (c *Client) Supports(language lang.Language) bool {
	_, ok := languageIDs[language]
	return ok
}

// Execute submits the prepared code to the provider and polls until
// the run settles or the attempt budget is spent.
func (c *Client) Execute(ctx context.Context, req sandbox.Request) (result.ExecutionResult, error) {
	start := time.Now()

	code, err := sandbox.Prepare(req)
	if err != nil {
		res := result.ExecutionResult{
			Status: result.VerdictError,
			Error:  appErr.GetError(err).Error(),
		}
		res.Normalize()
		res.ExecutionTimeMs = time.Since(start).Milliseconds()
		return res, nil
	}

	ids, ok := languageIDs[req.Language]
	if !ok {
		return result.ExecutionResult{}, appErr.Newf(appErr.LanguageNotSupported, "provider has no mapping for language %s", req.Language)
	}

	body := submitRequest{
		Script:       code,
		Language:     ids.id,
		VersionIndex: ids.versionIndex,
		Stdin:        req.Stdin,
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	}

	resp, err := c.post(ctx, "/execute", body)
	if err != nil {
		return result.ExecutionResult{}, err
	}

	// Some runs come back settled immediately, others hand out a
	// request id to poll.
	if resp.Status == "queued" || (resp.RequestID != "" && resp.Status == "running") {
		resp, err = c.poll(ctx, resp.RequestID)
		if err != nil {
			return result.ExecutionResult{}, err
		}
	}

	res := c.translate(resp)
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	res.Normalize()
	return res, nil
}

func (c *Client) poll(ctx context.Context, requestID string) (providerResponse, error) {
	for attempt := 0; attempt < c.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return providerResponse{}, appErr.Wrapf(ctx.Err(), appErr.ProviderError, "context cancelled while polling provider")
		case <-time.After(c.cfg.PollInterval):
		}

		resp, err := c.post(ctx, "/status", map[string]string{
			"requestId":    requestID,
			"clientId":     c.cfg.ClientID,
			"clientSecret": c.cfg.ClientSecret,
		})
		if err != nil {
			return providerResponse{}, err
		}
		if resp.Status != "queued" && resp.Status != "running" {
			return resp, nil
		}
		logger.Debugf(ctx, "provider request %s still %s, attempt %d", requestID, resp.Status, attempt+1)
	}
	return providerResponse{}, appErr.Newf(appErr.ProviderPollExhausted, "provider did not settle request %s after %d polls", requestID, c.cfg.MaxPollAttempts)
}

func (c *Client) post(ctx context.Context, path string, payload any) (providerResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return providerResponse{}, appErr.Wrapf(err, appErr.ProviderError, "failed to encode provider request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+path, bytes.NewReader(raw))
	if err != nil {
		return providerResponse{}, appErr.Wrapf(err, appErr.ProviderError, "failed to build provider request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return providerResponse{}, appErr.Wrapf(err, appErr.ProviderUnavailable, "provider request failed")
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return providerResponse{}, appErr.Wrapf(err, appErr.ProviderBadResponse, "failed to read provider response")
	}
	if httpResp.StatusCode != http.StatusOK {
		return providerResponse{}, appErr.Newf(appErr.ProviderBadResponse, "provider returned HTTP %d: %s", httpResp.StatusCode, truncate(string(data), 200))
	}

	var resp providerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return providerResponse{}, appErr.Wrapf(err, appErr.ProviderBadResponse, "failed to decode provider response")
	}
	return resp, nil
}

// translate maps the provider's wire shape onto our result vocabulary.
func (c *Client) translate(resp providerResponse) result.ExecutionResult {
	res := result.ExecutionResult{
		Output:        strings.TrimRight(resp.Output, "\n"),
		MemoryUsageKB: parseMemoryKB(resp.Memory),
	}

	switch {
	case resp.StatusCode != 0 && resp.StatusCode != 200:
		res.Status = result.VerdictError
		res.Error = fmt.Sprintf("Execution failed: provider status %d", resp.StatusCode)
		if resp.Error != "" {
			res.Error = "Execution failed: " + resp.Error
		}
	case strings.Contains(strings.ToLower(resp.Error), "timeout"),
		strings.Contains(strings.ToLower(resp.Output), "timeout exceeded"):
		res.Status = result.VerdictTimeout
		res.Error = "Time limit exceeded"
	case resp.Error != "":
		res.Status = result.VerdictError
		res.Error = "Execution failed: " + resp.Error
	default:
		res.Status = result.VerdictSuccess
	}
	return res
}

func parseMemoryKB(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return 0
	}
	var kb int64
	if _, err := fmt.Sscanf(s, "%d", &kb); err != nil {
		return 0
	}
	return kb
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
