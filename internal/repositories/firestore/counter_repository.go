package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/darzi-studio/api/internal/platform/firestore"
	"github.com/darzi-studio/api/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	MaxValue     *int64    `firestore:"maxValue,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// stride picks the increment for this advance: the caller's step when
// given, else the counter's stored step, else 1.
func (d counterDocument) stride(step int64) int64 {
	switch {
	case step > 0:
		return step
	case d.Step > 0:
		return d.Step
	default:
		return 1
	}
}

// CounterRepository hands out monotonically increasing sequence numbers,
// one Firestore document per counter.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.BaseRepository[counterDocument]
}

// NewCounterRepository builds the repository on top of the shared provider.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewBaseRepository[counterDocument](provider, countersCollection, nil, nil),
	}, nil
}

// Next advances the counter by step and returns the new value. A missing
// counter is created on first use. The advance runs in a transaction so
// concurrent callers never observe the same value.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}
	if step < 0 {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, fmt.Sprintf("step must be positive, got %d", step), nil)
	}

	var value int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.counters.DocumentRef(ctx, id)
		if err != nil {
			return err
		}

		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			value, err = seedCounter(tx, ref, step)
			return err
		}
		if err != nil {
			return err
		}

		value, err = advanceCounter(tx, ref, snap, id, step)
		return err
	})
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			return 0, counterErr
		}
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return value, nil
}

func seedCounter(tx *firestore.Transaction, ref *firestore.DocumentRef, step int64) (int64, error) {
	doc := counterDocument{UpdatedAt: time.Now().UTC()}
	doc.Step = doc.stride(step)
	doc.CurrentValue = doc.Step
	if err := tx.Create(ref, doc); err != nil {
		return 0, err
	}
	return doc.CurrentValue, nil
}

func advanceCounter(tx *firestore.Transaction, ref *firestore.DocumentRef, snap *firestore.DocumentSnapshot, id string, step int64) (int64, error) {
	var doc counterDocument
	if err := snap.DataTo(&doc); err != nil {
		return 0, fmt.Errorf("firestore counters decode %s: %w", id, err)
	}

	stride := doc.stride(step)
	next := doc.CurrentValue + stride
	if doc.MaxValue != nil && next > *doc.MaxValue {
		return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, fmt.Sprintf("counter %s exceeded max value %d", id, *doc.MaxValue), nil)
	}

	doc.CurrentValue = next
	doc.Step = stride
	doc.UpdatedAt = time.Now().UTC()
	if err := tx.Set(ref, doc, firestore.MergeAll); err != nil {
		return 0, err
	}
	return next, nil
}

// Configure overrides counter settings. Only the fields present in cfg
// are written; the current value moves only when InitialValue is set.
func (r *CounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	if r == nil || r.provider == nil {
		return errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return repositories.NewCounterError(repositories.CounterErrorInvalidInput, "counter id is required", nil)
	}

	payload := map[string]any{"updatedAt": time.Now().UTC()}
	if cfg.Step > 0 {
		payload["step"] = cfg.Step
	}
	if cfg.MaxValue != nil {
		payload["maxValue"] = *cfg.MaxValue
	}
	if cfg.InitialValue != nil {
		payload["currentValue"] = *cfg.InitialValue
	}

	ref, err := r.counters.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, payload, firestore.MergeAll); err != nil {
		return pfirestore.WrapError("counters.configure", err)
	}
	return nil
}
