package receiving

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// numberPrefix starts every receipt number: GRN-<YYMMDD>-<NNN>.
const numberPrefix = "GRN"

// NumberSource exposes the lookups the generator needs. The transactional
// repository satisfies it so numbers are derived inside the creation
// transaction.
type NumberSource interface {
	// MaxNumberSuffix returns the highest numeric suffix among receipt
	// numbers starting with prefix, or 0 when none exist.
	MaxNumberSuffix(ctx context.Context, prefix string) (int, error)
	// NumberExists reports whether the exact number is already taken.
	NumberExists(ctx context.Context, number string) (bool, error)
}

// NextNumber produces the next day-scoped receipt number. The counter starts
// at 001 each day. A concurrent writer may have computed the same counter, so
// the candidate is re-checked and, on an exact collision, a random three-digit
// suffix is appended instead of failing. The unique constraint on the header
// table remains the authoritative guard; the caller retries on conflict.
func NextNumber(ctx context.Context, src NumberSource, now time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", numberPrefix, now.Format("060102"))

	max, err := src.MaxNumberSuffix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("receiving: max number suffix: %w", err)
	}
	number := fmt.Sprintf("%s%03d", prefix, max+1)

	taken, err := src.NumberExists(ctx, number)
	if err != nil {
		return "", fmt.Errorf("receiving: number collision check: %w", err)
	}
	if taken {
		number = fmt.Sprintf("%s-%03d", number, rand.IntN(900)+100)
	}
	return number, nil
}
