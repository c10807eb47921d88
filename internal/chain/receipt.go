package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/termfi/vaultd/internal/domain"
)

// WaitOutcome blocks until the transaction is mined, then classifies the
// receipt. A mined-but-reverted transaction is a failure, never a success.
// When timeout is positive and confirmation does not arrive in time, the
// wait stops with domain.ErrTxTimeout instead of hanging forever.
func WaitOutcome(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction, timeout time.Duration) (domain.TxOutcome, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.TxOutcomeTimedOut, fmt.Errorf("chain: tx %s: %w", tx.Hash(), domain.ErrTxTimeout)
		}
		return "", fmt.Errorf("chain: wait for tx %s: %w", tx.Hash(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.TxOutcomeReverted, fmt.Errorf("chain: tx %s: %w", tx.Hash(), domain.ErrTxReverted)
	}
	return domain.TxOutcomeConfirmed, nil
}
