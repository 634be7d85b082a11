package dispatchstats

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/KirkDiggler/gridbus/internal/repositories/dispatchstats Repository,TimeProvider

// Stats are dispatch counters for one event key. Only counters are stored;
// subscriptions themselves are never persisted. Key is the variant-qualified
// form of the event key (integer:7, text:LevelStart), so each row belongs to
// exactly one key variant.
type Stats struct {
	Key         string    `json:"key"`
	Variant     string    `json:"variant"`
	Publishes   int64     `json:"publishes"`
	Invocations int64     `json:"invocations"`
	Skipped     int64     `json:"skipped"`
	Errors      int64     `json:"errors"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Merge adds other's counters into s
func (s *Stats) Merge(other *Stats) {
	if other == nil {
		return
	}
	s.Publishes += other.Publishes
	s.Invocations += other.Invocations
	s.Skipped += other.Skipped
	s.Errors += other.Errors
	if other.Variant != "" {
		s.Variant = other.Variant
	}
	if other.UpdatedAt.After(s.UpdatedAt) {
		s.UpdatedAt = other.UpdatedAt
	}
}

// Repository defines the interface for dispatch statistics storage
type Repository interface {
	// Add increments the stored counters for stats.Key by the given amounts
	Add(ctx context.Context, stats *Stats) error

	// Get retrieves the counters for one key
	Get(ctx context.Context, key string) (*Stats, error)

	// List retrieves the counters for every key
	List(ctx context.Context) ([]*Stats, error)

	// Reset removes all counters
	Reset(ctx context.Context) error
}

// TimeProvider stamps UpdatedAt
type TimeProvider interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now().UTC() }

// SystemTime returns a TimeProvider on the wall clock
func SystemTime() TimeProvider { return systemTime{} }
