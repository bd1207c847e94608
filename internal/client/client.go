package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Retry policy for idempotent operations
const (
	MaxRetries = 3
	BaseDelay  = time.Second
	MaxJitter  = time.Second
)

// TokenProvider supplies the bearer token attached to outbound requests
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the remote game backend. Every call goes through the
// resilience pipeline: circuit breaker check, in-flight deduplication, and
// retry with exponential backoff for idempotent operations.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breakers   *BreakerRegistry
	inflight   *dedupGroup
	tokens     TokenProvider

	// sleep is injectable so retry tests don't wait out real backoff
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a client for the backend at baseURL. tokens may be nil for
// unauthenticated use (tests, local backends).
func New(baseURL string, httpClient *http.Client, breakers *BreakerRegistry, tokens TokenProvider) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if breakers == nil {
		breakers = NewBreakerRegistry(BreakerConfig{})
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		breakers:   breakers,
		inflight:   newDedupGroup(),
		tokens:     tokens,
		sleep:      sleepCtx,
	}
}

// Breakers exposes the registry, mainly for health reporting
func (c *Client) Breakers() *BreakerRegistry {
	return c.breakers
}

// do runs one logical operation against the backend. op keys the circuit
// breaker; idempotent controls whether transient failures are retried.
// Concurrent calls with the same method, URL and body share one network call.
func (c *Client) do(ctx context.Context, op string, idempotent bool, method, path string, query url.Values, body, out any) error {
	if err := c.breakers.Allow(op); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	key := dedupKey(method, reqURL, payload)
	res := c.inflight.do(ctx, key, func() response {
		return c.attemptWithRetries(ctx, op, idempotent, method, reqURL, payload)
	})

	if res.err != nil {
		return res.err
	}
	if out != nil && len(res.body) > 0 {
		if err := json.Unmarshal(res.body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// attemptWithRetries performs the network call, retrying transient failures
// of idempotent operations with exponential backoff plus jitter. The breaker
// records one outcome per logical call, not per attempt, and only
// availability failures count against it: a 404 from a healthy backend says
// nothing about whether the endpoint is up.
func (c *Client) attemptWithRetries(ctx context.Context, op string, idempotent bool, method, reqURL string, payload []byte) response {
	var res response
	for attempt := 1; attempt <= MaxRetries; attempt++ {
		res = c.attempt(ctx, method, reqURL, payload)
		if res.err == nil {
			c.breakers.RecordSuccess(op)
			return res
		}
		if !idempotent || !retryable(res.err) || attempt == MaxRetries {
			break
		}

		delay := BaseDelay<<(attempt-1) + time.Duration(rand.Int63n(int64(MaxJitter)))
		log.Printf("Retrying %s after %v (attempt %d/%d): %v", op, delay, attempt, MaxRetries, res.err)
		if err := c.sleep(ctx, delay); err != nil {
			res = response{err: &NetworkError{Err: err}}
			break
		}
	}

	if countsAsBreakerFailure(res.err) {
		c.breakers.RecordFailure(op)
	} else {
		// The backend answered; the rejection settles a half-open trial
		c.breakers.RecordSuccess(op)
	}
	return res
}

// attempt performs a single HTTP round trip
func (c *Client) attempt(ctx context.Context, method, reqURL string, payload []byte) response {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return response{err: &NetworkError{Err: err}}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return response{err: fmt.Errorf("failed to get auth token: %w", err)}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{err: &NetworkError{Err: err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{err: &NetworkError{Err: err}}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response{status: resp.StatusCode, err: errorFromStatus(resp.StatusCode, errorMessage(body))}
	}

	return response{status: resp.StatusCode, body: body}
}

// errorMessage pulls a human-readable message out of an error response body
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func dedupKey(method, reqURL string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return method + " " + reqURL + " " + hex.EncodeToString(sum[:8])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
