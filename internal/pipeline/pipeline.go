// Package pipeline drives the asynchronous order submission: one network
// call bounded at five minutes, best-effort phase progress, and a strict
// failure taxonomy mapped to user-facing messages.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	domain "github.com/darzi-studio/api/internal/domain"
	"github.com/darzi-studio/api/internal/packager"
)

// DefaultTimeout bounds a single submission before it self-cancels.
const DefaultTimeout = 5 * time.Minute

const maxResponseBytes = 4 << 20

// FailureClass is the machine-readable classification of a failed submission.
type FailureClass string

const (
	// FailureTimeout means the call exceeded the submission deadline.
	FailureTimeout FailureClass = "timeout"
	// FailureNetwork means the transport failed before a response arrived.
	FailureNetwork FailureClass = "network"
	// FailureMalformed means the server responded outside the structured contract.
	FailureMalformed FailureClass = "malformed"
	// FailureBusiness means the server explicitly rejected the order.
	FailureBusiness FailureClass = "business"
)

// ErrInFlight is returned when a submission is attempted while another
// one is still outstanding.
var ErrInFlight = errors.New("pipeline: a submission is already in flight")

// SubmissionError carries the failure class plus the single user-facing
// message the wizard surfaces.
type SubmissionError struct {
	Class   FailureClass
	Message string
	err     error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return fmt.Sprintf("pipeline: %s: %v", e.Class, e.err)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Class, e.Message)
}

// Unwrap returns the underlying error.
func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func failure(class FailureClass, message string, err error) *SubmissionError {
	return &SubmissionError{Class: class, Message: message, err: err}
}

const (
	msgTimeout   = "The order took too long to submit. Very large orders may need to be split up or resubmitted."
	msgNetwork   = "Could not reach the order service. Check your connection and try again."
	msgMalformed = "The server returned something unexpected. Please retry later or contact support."
)

// Phase names one of the four backend stages the progress display walks
// through optimistically.
type Phase string

const (
	PhaseOrderAccepted     Phase = "order_data_accepted"
	PhaseFilesUploaded     Phase = "files_uploaded"
	PhaseInvoicesGenerated Phase = "invoices_generated"
	PhaseNotificationSent  Phase = "notification_sent"
)

// ProgressFunc receives best-effort phase ticks. The ticks are cosmetic
// and may race the real network call; they carry no correctness weight.
type ProgressFunc func(Phase)

// Result is the authoritative server echo of a successful submission.
type Result struct {
	OrderID   string
	OrderDate time.Time
	Order     domain.Order
}

// wireResponse is the structured body the order service must return.
type wireResponse struct {
	Success   bool            `json:"success"`
	OrderID   string          `json:"orderId"`
	OrderDate string          `json:"orderDate"`
	Order     json.RawMessage `json:"order"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
}

// Pipeline performs order submissions against a single endpoint. Only
// one submission may be in flight at a time.
type Pipeline struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *zap.Logger

	phaseOffsets []time.Duration

	mu       sync.Mutex
	inFlight bool
}

// Option customises the pipeline.
type Option func(*Pipeline)

// WithHTTPClient overrides the HTTP client used for submissions.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Pipeline) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout overrides the submission deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithLogger attaches a logger for submission telemetry.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPhaseOffsets overrides the fixed offsets at which the optimistic
// phase ticks fire. Useful to compress them in tests.
func WithPhaseOffsets(offsets [4]time.Duration) Option {
	return func(p *Pipeline) {
		p.phaseOffsets = offsets[:]
	}
}

// New constructs a submission pipeline for the given endpoint URL.
func New(endpoint string, opts ...Option) (*Pipeline, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("pipeline: endpoint is required")
	}
	p := &Pipeline{
		endpoint: endpoint,
		client:   http.DefaultClient,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
		phaseOffsets: []time.Duration{
			1500 * time.Millisecond,
			4 * time.Second,
			7 * time.Second,
			9 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Submit sends the packaged payload and resolves it into either the
// authoritative server echo or a classified SubmissionError. The observe
// callback, when non-nil, receives the optimistic phase ticks; it stops
// being called before Submit returns.
func (p *Pipeline) Submit(ctx context.Context, payload packager.Payload, observe ProgressFunc) (Result, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return Result{}, ErrInFlight
	}
	p.inFlight = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stopTicker := p.startPhaseTicker(ctx, observe)
	defer stopTicker()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload.Body))
	if err != nil {
		return Result{}, failure(FailureNetwork, msgNetwork, err)
	}
	req.Header.Set("Content-Type", payload.ContentType)
	req.Header.Set("Accept", "application/json")
	if key := strings.TrimSpace(payload.IdempotencyKey); key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			p.logger.Warn("submission timed out",
				zap.Duration("after", time.Since(started)),
				zap.Duration("deadline", p.timeout))
			return Result{}, failure(FailureTimeout, msgTimeout, err)
		}
		p.logger.Warn("submission transport failure", zap.Error(err))
		return Result{}, failure(FailureNetwork, msgNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	result, subErr := p.decodeResponse(resp)
	if subErr != nil {
		p.logger.Warn("submission rejected",
			zap.String("class", string(subErr.Class)),
			zap.Int("status", resp.StatusCode))
		return Result{}, subErr
	}
	p.logger.Info("submission accepted",
		zap.String("order_id", result.OrderID),
		zap.Duration("took", time.Since(started)))
	return result, nil
}

func (p *Pipeline) decodeResponse(resp *http.Response) (Result, *SubmissionError) {
	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "application/json" {
		return Result{}, failure(FailureMalformed, msgMalformed,
			fmt.Errorf("unexpected content type %q", contentType))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, failure(FailureNetwork, msgNetwork, err)
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return Result{}, failure(FailureMalformed, msgMalformed, err)
	}

	if !wire.Success {
		// The server's reason is shown verbatim. Envelopes that carry a
		// machine code in "error" put the human-readable reason in
		// "message", so that field wins when present.
		reason := strings.TrimSpace(wire.Message)
		if reason == "" {
			reason = strings.TrimSpace(wire.Error)
		}
		if reason == "" {
			return Result{}, failure(FailureMalformed, msgMalformed,
				fmt.Errorf("error response without a reason (status %d)", resp.StatusCode))
		}
		return Result{}, failure(FailureBusiness, reason, nil)
	}

	if strings.TrimSpace(wire.OrderID) == "" || len(wire.Order) == 0 {
		return Result{}, failure(FailureMalformed, msgMalformed,
			errors.New("success response missing orderId or order document"))
	}
	var order domain.Order
	if err := json.Unmarshal(wire.Order, &order); err != nil {
		return Result{}, failure(FailureMalformed, msgMalformed, err)
	}

	orderDate, err := time.Parse(time.RFC3339, wire.OrderDate)
	if err != nil {
		orderDate = order.CreatedAt
	}
	return Result{
		OrderID:   wire.OrderID,
		OrderDate: orderDate,
		Order:     order,
	}, nil
}

// startPhaseTicker walks the four phases on fixed offsets until the
// submission resolves. The returned stop function blocks until no more
// ticks will be delivered.
func (p *Pipeline) startPhaseTicker(ctx context.Context, observe ProgressFunc) func() {
	if observe == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		phases := []Phase{PhaseOrderAccepted, PhaseFilesUploaded, PhaseInvoicesGenerated, PhaseNotificationSent}
		start := time.Now()
		for i, phase := range phases {
			offset := p.phaseOffsets[i%len(p.phaseOffsets)]
			wait := offset - time.Since(start)
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-done:
					timer.Stop()
					return
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}
			observe(phase)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
