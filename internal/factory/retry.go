package factory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/token"
)

// GraduateWithRetry retries graduation across transient AMM failures with
// exponential backoff. Criteria failures and a terminal curve are permanent;
// only pool-boundary errors are worth retrying.
func (f *Factory) GraduateWithRetry(ctx context.Context, mint solana.PublicKey, maxElapsed time.Duration) (*token.GraduationRecord, error) {
	op := func() (*token.GraduationRecord, error) {
		rec, err := f.Graduate(ctx, mint)
		if err == nil {
			return rec, nil
		}
		if errors.Is(err, token.ErrPoolCreationFailed) || errors.Is(err, token.ErrLiquidityTransferFailed) {
			f.logger.Warn("graduation attempt failed, will retry",
				zap.String("mint", mint.String()),
				zap.Error(err))
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	return backoff.Retry(
		ctx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithMaxTries(uint(f.cfg.GraduationRetries)+1),
	)
}
