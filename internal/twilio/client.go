// Package twilio implements the telephony gateway client: paginated
// message/call queries, SMS sending, and two-leg click-to-call dialing
// against the Twilio REST API. The client is stateless and performs no
// retries; provider errors surface verbatim to the caller.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/costaleads/lead-relay/internal/config"
	"github.com/costaleads/lead-relay/internal/models"
)

// APIError is a non-2xx provider response, carried verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL        string
	accountSID     string
	authToken      string
	operatorNumber string
	httpClient     *http.Client
	logger         *zap.Logger
}

func NewClient(cfg *config.TwilioConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		accountSID:     cfg.AccountSID,
		authToken:      cfg.AuthToken,
		operatorNumber: cfg.OperatorNumber,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

type messagePage struct {
	Messages []models.Message `json:"messages"`
}

type callPage struct {
	Calls []models.Call `json:"calls"`
}

// FetchMessages returns up to limit messages sent from or to the given
// number, newest first. The provider has no single "either endpoint"
// filter, so two queries run concurrently and are joined fail-fast; the
// merged result is deduplicated by SID before sorting.
func (c *Client) FetchMessages(ctx context.Context, number string, limit int) ([]models.Message, error) {
	var sent, received messagePage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "Messages.json", url.Values{
			"From":     {number},
			"PageSize": {strconv.Itoa(limit)},
		}, &sent)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "Messages.json", url.Values{
			"To":       {number},
			"PageSize": {strconv.Itoa(limit)},
		}, &received)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := dedupeMessages(append(sent.Messages, received.Messages...))
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp().After(merged[j].Timestamp())
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// FetchCalls mirrors FetchMessages over the call log.
func (c *Client) FetchCalls(ctx context.Context, number string, limit int) ([]models.Call, error) {
	var placed, received callPage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "Calls.json", url.Values{
			"From":     {number},
			"PageSize": {strconv.Itoa(limit)},
		}, &placed)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "Calls.json", url.Values{
			"To":       {number},
			"PageSize": {strconv.Itoa(limit)},
		}, &received)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := dedupeCalls(append(placed.Calls, received.Calls...))
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp().After(merged[j].Timestamp())
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// SendMessage creates an outbound SMS and returns the provider's record
// for it.
func (c *Client) SendMessage(ctx context.Context, from, to, body string) (*models.Message, error) {
	var msg models.Message
	err := c.postForm(ctx, "Messages.json", url.Values{
		"From": {from},
		"To":   {to},
		"Body": {body},
	}, &msg)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Message sent",
		zap.String("sid", msg.SID),
		zap.String("from", from),
		zap.String("to", to))
	return &msg, nil
}

// InitiateCall bridges a two-leg call: the provider rings the operator's
// own number first, then connects the customer via the embedded dial
// instructions. The customer sees the business number as caller ID and
// never the operator's personal number.
func (c *Client) InitiateCall(ctx context.Context, from, to string) (*models.Call, error) {
	twiml := fmt.Sprintf(`<Response><Dial callerId="%s"><Number>%s</Number></Dial></Response>`, from, to)

	var call models.Call
	err := c.postForm(ctx, "Calls.json", url.Values{
		"From":  {from},
		"To":    {c.operatorNumber},
		"Twiml": {twiml},
	}, &call)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Call initiated",
		zap.String("sid", call.SID),
		zap.String("business", from),
		zap.String("customer", to))
	return &call, nil
}

func (c *Client) resourceURL(resource string) string {
	return fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, c.accountSID, resource)
}

func (c *Client) getJSON(ctx context.Context, resource string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(resource)+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, resource string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resourceURL(resource), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach provider: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// dedupeMessages keeps one record per SID, last seen wins. Records are
// immutable so the choice of copy does not matter.
func dedupeMessages(msgs []models.Message) []models.Message {
	seen := make(map[string]int, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if i, ok := seen[m.SID]; ok {
			out[i] = m
			continue
		}
		seen[m.SID] = len(out)
		out = append(out, m)
	}
	return out
}

func dedupeCalls(calls []models.Call) []models.Call {
	seen := make(map[string]int, len(calls))
	out := calls[:0]
	for _, c := range calls {
		if i, ok := seen[c.SID]; ok {
			out[i] = c
			continue
		}
		seen[c.SID] = len(out)
		out = append(out, c)
	}
	return out
}
