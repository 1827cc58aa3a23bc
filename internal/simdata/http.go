package simdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uxlens/uxlens/pkg/logger"
)

// HTTPClient wraps http.Client with a timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with a timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalScript marshals one session script to JSON.
func marshalScript(s *Script) ([]byte, error) {
	return json.Marshal(s)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitScripts posts each session's event batch concurrently, then submits
// the session rows and answers in single batches.
func submitScripts(ctx context.Context, config *Config, scripts []Script, stats *Stats) error {
	logger.Get().Info(ctx, "submitting session scripts",
		logger.Int("sessions", len(scripts)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)

	var (
		accepted  int64
		duplicate int64
		rejected  int64
		failed    int64
	)

	scriptChan := make(chan Script, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for script := range scriptChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				ack, err := postEventBatch(ctx, client, config.BaseURL+"/events", script.Events)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "event batch failed",
							logger.String("sessionID", script.Session.SessionID),
							logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&accepted, int64(ack.Accepted))
				atomic.AddInt64(&duplicate, int64(ack.Duplicates))
				atomic.AddInt64(&rejected, int64(ack.Rejected))
			}
		}()
	}

	go func() {
		defer close(scriptChan)
		for _, script := range scripts {
			select {
			case <-ctx.Done():
				return
			case scriptChan <- script:
			}
		}
	}()

	wg.Wait()

	stats.EventsAccepted = int(atomic.LoadInt64(&accepted))
	stats.EventsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EventsRejected = int(atomic.LoadInt64(&rejected))
	stats.BatchesFailed = int(atomic.LoadInt64(&failed))

	// Session rows and answers are small; one batch each is enough.
	sessions := make([]Session, 0, len(scripts))
	answers := make([]Answer, 0, len(scripts))
	for i := range scripts {
		sessions = append(sessions, scripts[i].Session)
		if scripts[i].Answer != nil {
			answers = append(answers, *scripts[i].Answer)
		}
	}

	if err := postBatch(ctx, client, config.BaseURL+"/sessions", map[string]interface{}{"sessions": sessions}); err != nil {
		return fmt.Errorf("session batch failed: %w", err)
	}
	stats.SessionsSubmitted = len(sessions)

	if len(answers) > 0 {
		if err := postBatch(ctx, client, config.BaseURL+"/answers", map[string]interface{}{"answers": answers}); err != nil {
			return fmt.Errorf("answer batch failed: %w", err)
		}
		stats.AnswersSubmitted = len(answers)
	}

	logger.Get().Info(ctx, "submission completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("rejected", stats.EventsRejected),
		logger.Int("failedBatches", stats.BatchesFailed),
		logger.Int("sessions", stats.SessionsSubmitted),
		logger.Int("answers", stats.AnswersSubmitted))

	return nil
}

// postEventBatch posts one event batch and decodes the acknowledgement.
func postEventBatch(ctx context.Context, client *HTTPClient, url string, events []Event) (*AckResponse, error) {
	resp, err := client.Post(ctx, url, map[string]interface{}{"events": events})
	if err != nil {
		return nil, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != StatusAccepted && resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var ack AckResponse
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("failed to decode acknowledgement: %w", err)
	}
	return &ack, nil
}

// postBatch posts a batch payload and checks for an accepted status.
func postBatch(ctx context.Context, client *HTTPClient, url string, payload interface{}) error {
	resp, err := client.Post(ctx, url, payload)
	if err != nil {
		return err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode != StatusAccepted && resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// fetchSummary retrieves the block summary report.
func fetchSummary(ctx context.Context, client *HTTPClient, config *Config) (*Summary, error) {
	url := config.BaseURL + "/reports/summary?block_id=" + config.BlockID
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("summary request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var summary Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// fetchFlow retrieves the block flow graph.
func fetchFlow(ctx context.Context, client *HTTPClient, config *Config) (*FlowGraph, error) {
	url := config.BaseURL + "/reports/flow?block_id=" + config.BlockID
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("flow request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var graph FlowGraph
	if err := json.Unmarshal(body, &graph); err != nil {
		return nil, fmt.Errorf("failed to decode flow graph: %w", err)
	}
	return &graph, nil
}
