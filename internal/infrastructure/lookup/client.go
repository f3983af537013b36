package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client handles communication with the remote product lookup API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	log         zerolog.Logger
}

// Options tunes the lookup client
type Options struct {
	Timeout        time.Duration // per-request timeout (default 10s)
	RequestsPerSec float64       // client-side rate limit (default 5/s)
}

// NewClient creates a client for the product lookup backend
func NewClient(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RequestsPerSec
	if rps == 0 {
		rps = 5
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 5),
		log:         logging.WithComponent("lookup"),
	}
}

// lookupRequest is the wire shape of a lookup call
type lookupRequest struct {
	Barcode string `json:"barcode"`
}

// lookupEnvelope is the wire shape of a lookup response, success or failure
type lookupEnvelope struct {
	OK      bool                   `json:"ok"`
	Product *domain.BarcodeProduct `json:"product,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// Lookup resolves a normalized barcode against the backend. Every failure is
// returned as a *domain.LookupError carrying the classified reason; transport
// failures classify as network, unrecognized responses as unknown.
func (c *Client) Lookup(ctx context.Context, barcode string) (*domain.BarcodeProduct, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &domain.LookupError{Reason: domain.ReasonNetwork, Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	payload, err := json.Marshal(lookupRequest{Barcode: barcode})
	if err != nil {
		return nil, &domain.LookupError{Reason: domain.ReasonUnknown, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/barcode/lookup", bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.LookupError{Reason: domain.ReasonUnknown, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NutriScan/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("barcode", barcode).Msg("lookup transport failure")
		return nil, &domain.LookupError{Reason: domain.ReasonNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.LookupError{Reason: domain.ReasonNetwork, Message: err.Error()}
	}

	// The body reason field is advisory; the status code decides the branch
	var env lookupEnvelope
	_ = json.Unmarshal(body, &env)

	return c.classify(resp.StatusCode, &env, barcode)
}

// classify maps HTTP status plus the body reason field onto the closed
// failure taxonomy
func (c *Client) classify(status int, env *lookupEnvelope, barcode string) (*domain.BarcodeProduct, error) {
	switch {
	case status >= 200 && status < 300:
		if env.Product == nil {
			return nil, &domain.LookupError{Reason: domain.ReasonUnknown, Message: "response missing product", Status: status}
		}
		c.log.Debug().Str("barcode", barcode).Str("product", env.Product.Name).Msg("lookup resolved")
		return env.Product, nil

	case status == http.StatusNotFound:
		return nil, &domain.LookupError{Reason: domain.ReasonNotFound, Message: messageOr(env, "no product for barcode"), Status: status}

	case status == http.StatusBadRequest:
		return nil, &domain.LookupError{Reason: domain.ReasonBadBarcode, Message: messageOr(env, "backend rejected barcode format"), Status: status}

	case env.Reason == string(domain.ReasonPartial):
		return nil, &domain.LookupError{Reason: domain.ReasonPartial, Message: messageOr(env, "product data incomplete"), Status: status}

	default:
		c.log.Warn().Int("status", status).Str("barcode", barcode).Msg("unclassified lookup response")
		return nil, &domain.LookupError{Reason: domain.ReasonUnknown, Message: messageOr(env, fmt.Sprintf("unexpected status %d", status)), Status: status}
	}
}

func messageOr(env *lookupEnvelope, fallback string) string {
	if env.Message != "" {
		return env.Message
	}
	return fallback
}
