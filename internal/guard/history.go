package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/textqueue/internal/domain"
)

// ImportHistory looks up stored imports by checksum.
type ImportHistory interface {
	GetLatestByChecksum(ctx context.Context, checksum string) (*domain.Import, error)
}

var _ ImportGuard = (*HistoryGuard)(nil)

// HistoryGuard refuses an export whose checksum was stored within window.
// It is used when no Redis is configured; it cannot hold a claim, so two runs
// racing on the same file are only caught once one of them has committed.
type HistoryGuard struct {
	history ImportHistory
	window  time.Duration
	now     func() time.Time
}

func NewHistoryGuard(history ImportHistory, window time.Duration) (*HistoryGuard, error) {
	if history == nil {
		return nil, fmt.Errorf("import history is required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("guard window must be > 0")
	}

	return &HistoryGuard{history: history, window: window, now: time.Now}, nil
}

func (g *HistoryGuard) Acquire(ctx context.Context, checksum string) error {
	checksum = strings.ToLower(strings.TrimSpace(checksum))
	if checksum == "" {
		return fmt.Errorf("%w: checksum is required", domain.ErrValidation)
	}

	latest, err := g.history.GetLatestByChecksum(ctx, checksum)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up import history: %w", err)
	}

	if g.now().Sub(latest.CreatedAt) < g.window {
		return fmt.Errorf("%w: %s was stored at %s as import %s",
			ErrAlreadyImported, latest.FileName, latest.CreatedAt.UTC().Format(time.RFC3339), latest.ID)
	}
	return nil
}

// Release is a no-op: nothing is held until the import row is committed.
func (g *HistoryGuard) Release(context.Context, string) error {
	return nil
}
