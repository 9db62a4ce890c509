package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"ebook-assistant/internal/logger"
	"ebook-assistant/internal/telemetry"
	"ebook-assistant/models"
)

// FallbackMessage is shown whenever the backend gives no usable answer.
const FallbackMessage = "Xin lỗi, tôi không thể tìm thấy thông tin để trả lời câu hỏi này."

const (
	statusOK        = "ok"
	maxResponseSize = 4 << 20
)

var (
	// ErrNoAnswer wraps every failure of the chat backend: transport errors,
	// non-2xx statuses, undecodable bodies and status != "ok".
	ErrNoAnswer = errors.New("chat backend returned no answer")
	// ErrBackendStatus marks a non-2xx reply from the backend.
	ErrBackendStatus = errors.New("backend error")
)

// defaultCitation is what an explanation points at when the backend cites
// nothing.
var defaultCitation = models.Citation{
	Chapter:     6,
	Section:     "Vấn đề dân tộc và tôn giáo trong thời kỳ quá độ lên chủ nghĩa xã hội",
	Page:        0,
	ParagraphID: "chap_6275cc3e02028042",
}

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	RPM          int
	BreakerTrips int
	BreakerReset time.Duration
}

// Client talks to the question-answering backend at BaseURL + "/chat". Each
// call makes exactly one HTTP attempt.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	metrics  *telemetry.Metrics
}

// backendRequest always carries an explicit null context_hint.
type backendRequest struct {
	Query       string  `json:"query"`
	ContextHint *string `json:"context_hint"`
}

func NewClient(opts Options, metrics *telemetry.Metrics) *Client {
	trips := uint32(opts.BreakerTrips)
	if trips == 0 {
		trips = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ChatBackend",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerReset,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	limit := rate.Inf
	burst := 1
	if opts.RPM > 0 {
		limit = rate.Limit(float64(opts.RPM) / 60.0)
		burst = max(1, opts.RPM/10)
	}

	return &Client{
		endpoint: opts.BaseURL + "/chat",
		http:     &http.Client{Timeout: opts.Timeout},
		breaker:  breaker,
		limiter:  rate.NewLimiter(limit, burst),
		metrics:  metrics,
	}
}

// Ask sends query to the backend. On any failure it returns nil and an error
// wrapping ErrNoAnswer; callers show FallbackMessage.
func (c *Client) Ask(ctx context.Context, query string) (*models.BackendChatResponse, error) {
	ctx, span := otel.Tracer("chat-client").Start(ctx, "chat.ask")
	defer span.End()
	span.SetAttributes(attribute.Int("chat.query_length", len(query)))

	body, err := json.Marshal(backendRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAnswer, err)
	}

	raw, _, err := c.do(ctx, http.MethodPost, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrNoAnswer, err)
	}

	var resp models.BackendChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.metrics.RecordChat("error")
		span.RecordError(err)
		return nil, fmt.Errorf("%w: decode response: %v", ErrNoAnswer, err)
	}
	if resp.Status != statusOK {
		c.metrics.RecordChat("no_answer")
		span.SetAttributes(attribute.String("chat.status", resp.Status))
		return nil, fmt.Errorf("%w: status %q", ErrNoAnswer, resp.Status)
	}

	c.metrics.RecordChat("ok")
	span.SetAttributes(
		attribute.String("chat.intent", resp.Intent),
		attribute.Int("chat.references", len(resp.References)),
	)
	return &resp, nil
}

// Explain asks about term, or about followUp when it is set, and maps the
// answer onto a TermExplanation.
func (c *Client) Explain(ctx context.Context, term, followUp string) (*models.TermExplanation, error) {
	query := term
	if followUp != "" {
		query = followUp
	}

	resp, err := c.Ask(ctx, query)
	if err != nil {
		return nil, err
	}

	citation := defaultCitation
	if len(resp.References) > 0 {
		ref := resp.References[0]
		chapter, _ := strconv.Atoi(ref.Chapter)
		citation = models.Citation{
			Chapter:     chapter,
			Section:     ref.HeadingID,
			Page:        ref.PIndex,
			ParagraphID: ref.URL,
		}
	}

	explanation := &models.TermExplanation{
		Term:         term,
		Explanation:  resp.Content,
		CitationText: resp.Note,
		Citation:     citation,
	}
	if len(resp.FollowUps) > 0 {
		explanation.InteractiveQuestion = resp.FollowUps[0].Question
	}
	return explanation, nil
}

// Forward relays a proxied request to the backend and returns its JSON body
// and status. Only POST carries a body.
func (c *Client) Forward(ctx context.Context, method string, body []byte) (json.RawMessage, int, error) {
	ctx, span := otel.Tracer("chat-client").Start(ctx, "chat.forward")
	defer span.End()

	if method != http.MethodPost {
		body = nil
	}
	raw, status, err := c.do(ctx, method, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, status, err
	}
	if !json.Valid(raw) {
		c.metrics.RecordChat("error")
		return nil, status, errors.New("backend returned invalid JSON")
	}
	return json.RawMessage(raw), status, nil
}

// do performs one rate limited, breaker guarded request.
func (c *Client) do(ctx context.Context, method string, body []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.RecordChat("error")
		return nil, 0, err
	}

	var status int
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		status = resp.StatusCode

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
			return nil, fmt.Errorf("%w: %d", ErrBackendStatus, resp.StatusCode)
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.RecordChat("open")
		} else {
			c.metrics.RecordChat("error")
		}
		logger.Warn("Chat backend call failed", "method", method, "status", status, "error", err)
		return nil, status, err
	}
	return result.([]byte), status, nil
}

// ParagraphID rebuilds the viewer element id a backend reference points at.
func ParagraphID(headingID string, pIndex int) string {
	return headingID + "_p" + strconv.Itoa(pIndex)
}
