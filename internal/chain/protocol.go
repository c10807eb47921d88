package chain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/termfi/vaultd/internal/domain"
)

// oneToken is the probe amount (1.0 at 18 decimals) used to quote the
// current pool price of a maturity token.
var oneToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

const secondsPerYear = 365 * 24 * 3600

// SubmittedTx is a transaction that has been accepted by the node. The
// handle is the chain-assigned hash; Wait blocks until the mined outcome
// is known.
type SubmittedTx struct {
	handle string
	tx     *types.Transaction
	conn   *Connector
}

// Handle returns the chain-assigned transaction hash.
func (s *SubmittedTx) Handle() string {
	return s.handle
}

// Wait classifies the mined receipt under the given timeout. See
// WaitOutcome for the revert and timeout semantics.
func (s *SubmittedTx) Wait(ctx context.Context, timeout time.Duration) (domain.TxOutcome, error) {
	return WaitOutcome(ctx, s.conn.Backend(), s.tx, timeout)
}

// seriesHandles caches the bound contracts for one discovered series.
type seriesHandles struct {
	pool     *Pool
	token    *MaturityToken
	maturity *big.Int
}

// Protocol is the concrete chain-backed implementation of the vault's
// seven operations plus bulk series and position loading. Bound pool and
// token contracts are cached per series after the first LoadSeries.
type Protocol struct {
	conn        *Connector
	controller  *Controller
	directory   *SeriesDirectory
	collaterals []domain.CollateralType

	mu     sync.RWMutex
	series map[string]seriesHandles

	logger *slog.Logger
}

// NewProtocol resolves the controller and series directory through the
// registry and returns a Protocol ready for LoadSeries.
func NewProtocol(conn *Connector, reg *Registry, collaterals []domain.CollateralType, logger *slog.Logger) (*Protocol, error) {
	controllerAddr, err := reg.Address(ContractController)
	if err != nil {
		return nil, err
	}
	directoryAddr, err := reg.Address(ContractSeriesDirectory)
	if err != nil {
		return nil, err
	}
	if len(collaterals) == 0 {
		collaterals = []domain.CollateralType{domain.CollateralETH}
	}
	return &Protocol{
		conn:        conn,
		controller:  NewController(conn, controllerAddr),
		directory:   NewSeriesDirectory(conn, directoryAddr),
		collaterals: collaterals,
		series:      make(map[string]seriesHandles),
		logger:      logger.With(slog.String("component", "protocol")),
	}, nil
}

// Account returns the connected signing account as a hex string.
func (p *Protocol) Account() string {
	return p.conn.Account().Hex()
}

// LoadSeries fetches the full series set from the directory, quoting the
// current pool price and series-wide debt for each. The set is returned
// wholesale; callers cache and replace, never patch.
func (p *Protocol) LoadSeries(ctx context.Context) ([]domain.Series, error) {
	count, err := p.directory.Count(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Series, 0, count)
	for i := 0; i < count; i++ {
		entry, err := p.directory.At(ctx, i)
		if err != nil {
			return nil, err
		}

		id := seriesID(entry.ID)
		pool := NewPool(p.conn, entry.Pool)
		token := NewMaturityToken(p.conn, entry.Token)

		p.mu.Lock()
		p.series[id] = seriesHandles{pool: pool, token: token, maturity: entry.Maturity}
		p.mu.Unlock()

		value, err := pool.SellPreview(ctx, oneToken)
		if err != nil {
			return nil, err
		}

		maturity := time.Unix(entry.Maturity.Int64(), 0).UTC()
		s := domain.Series{
			ID:           id,
			Name:         seriesName(entry.ID),
			Maturity:     maturity,
			APR:          impliedAPR(value, maturity, time.Now().UTC()),
			CurrentValue: value,
			TokenAddress: entry.Token.Hex(),
			PoolAddress:  entry.Pool.Hex(),
			TotalDebt:    make(map[domain.CollateralType]*big.Int, len(p.collaterals)),
		}
		for _, ct := range p.collaterals {
			debt, err := p.controller.TotalDebt(ctx, ct, entry.Maturity)
			if err != nil {
				return nil, err
			}
			s.TotalDebt[ct] = debt
		}
		out = append(out, s)
	}

	p.logger.Debug("series loaded", slog.Int("count", len(out)))
	return out, nil
}

// LoadPosition reads the account's posted collateral and per-series debt,
// building a fresh snapshot from scratch.
func (p *Protocol) LoadPosition(ctx context.Context, account string, id string) (domain.Position, error) {
	addr, err := ParseAddress(account)
	if err != nil {
		return domain.Position{}, err
	}
	handles, err := p.handles(id)
	if err != nil {
		return domain.Position{}, err
	}

	pos := domain.Position{
		Account:    addr.Hex(),
		SeriesID:   id,
		Collateral: make(map[domain.CollateralType]domain.CollateralSlice, len(p.collaterals)),
		FetchedAt:  time.Now().UTC(),
	}
	for _, ct := range p.collaterals {
		posted, err := p.controller.Posted(ctx, ct, addr)
		if err != nil {
			return domain.Position{}, err
		}
		debt, err := p.controller.Debt(ctx, ct, handles.maturity, addr)
		if err != nil {
			return domain.Position{}, err
		}
		pos.Collateral[ct] = domain.CollateralSlice{Posted: posted, Debt: debt}
	}
	return pos, nil
}

// Deposit posts collateral of the given type.
func (p *Protocol) Deposit(ctx context.Context, collateral domain.CollateralType, amount *big.Int) (domain.SubmittedTx, error) {
	tx, err := p.controller.Post(ctx, collateral, amount)
	return p.wrap(tx, err)
}

// Withdraw removes posted collateral.
func (p *Protocol) Withdraw(ctx context.Context, collateral domain.CollateralType, amount *big.Int) (domain.SubmittedTx, error) {
	tx, err := p.controller.Withdraw(ctx, collateral, amount)
	return p.wrap(tx, err)
}

// Borrow mints debt in the given series against posted collateral.
func (p *Protocol) Borrow(ctx context.Context, collateral domain.CollateralType, id string, amount *big.Int) (domain.SubmittedTx, error) {
	handles, err := p.handles(id)
	if err != nil {
		return nil, err
	}
	tx, err := p.controller.Borrow(ctx, collateral, handles.maturity, amount)
	return p.wrap(tx, err)
}

// Repay settles outstanding debt in the given series.
func (p *Protocol) Repay(ctx context.Context, collateral domain.CollateralType, id string, amount *big.Int) (domain.SubmittedTx, error) {
	handles, err := p.handles(id)
	if err != nil {
		return nil, err
	}
	tx, err := p.controller.Repay(ctx, collateral, handles.maturity, amount)
	return p.wrap(tx, err)
}

// Sell trades maturity tokens for stablecoin through the series pool.
func (p *Protocol) Sell(ctx context.Context, id string, amount *big.Int) (domain.SubmittedTx, error) {
	handles, err := p.handles(id)
	if err != nil {
		return nil, err
	}
	tx, err := handles.pool.SellToken(ctx, amount)
	return p.wrap(tx, err)
}

// Buy trades stablecoin for maturity tokens through the series pool.
func (p *Protocol) Buy(ctx context.Context, id string, amount *big.Int) (domain.SubmittedTx, error) {
	handles, err := p.handles(id)
	if err != nil {
		return nil, err
	}
	tx, err := handles.pool.BuyToken(ctx, amount)
	return p.wrap(tx, err)
}

// Redeem exchanges matured tokens for the underlying stablecoin.
func (p *Protocol) Redeem(ctx context.Context, id string, amount *big.Int) (domain.SubmittedTx, error) {
	handles, err := p.handles(id)
	if err != nil {
		return nil, err
	}
	tx, err := handles.token.Redeem(ctx, amount)
	return p.wrap(tx, err)
}

func (p *Protocol) wrap(tx *types.Transaction, err error) (domain.SubmittedTx, error) {
	if err != nil {
		return nil, err
	}
	return &SubmittedTx{handle: tx.Hash().Hex(), tx: tx, conn: p.conn}, nil
}

func (p *Protocol) handles(id string) (seriesHandles, error) {
	p.mu.RLock()
	h, ok := p.series[id]
	p.mu.RUnlock()
	if !ok {
		return seriesHandles{}, fmt.Errorf("chain: series %q: %w", id, domain.ErrUnknownSeries)
	}
	return h, nil
}

// seriesID renders the on-chain bytes32 identifier as 0x-prefixed hex.
func seriesID(raw [32]byte) string {
	return "0x" + common.Bytes2Hex(raw[:])
}

// seriesName extracts the printable prefix of the identifier ("fyDAI-2609"
// style labels) or falls back to the hex ID.
func seriesName(raw [32]byte) string {
	trimmed := bytes.TrimRight(raw[:], "\x00")
	for _, b := range trimmed {
		if b < 0x20 || b > 0x7e {
			return seriesID(raw)
		}
	}
	if len(trimmed) == 0 {
		return seriesID(raw)
	}
	return string(trimmed)
}

// impliedAPR derives the annualized rate from the pool's quoted value of
// one maturity token. A matured series or a zero quote yields zero.
func impliedAPR(value *big.Int, maturity, now time.Time) float64 {
	if value == nil || value.Sign() <= 0 || !maturity.After(now) {
		return 0
	}
	price, _ := new(big.Float).Quo(
		new(big.Float).SetInt(value),
		new(big.Float).SetInt(oneToken),
	).Float64()
	if price <= 0 {
		return 0
	}
	years := maturity.Sub(now).Seconds() / secondsPerYear
	return (1/price - 1) / years * 100
}
