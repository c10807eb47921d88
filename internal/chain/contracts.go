package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/termfi/vaultd/internal/domain"
)

// Hand-declared ABIs for the deployed protocol contracts. The interfaces
// are fixed and opaque; only the entry points the vault uses are declared.
const (
	controllerABI = `[
		{"type":"function","name":"post","inputs":[{"name":"collateral","type":"bytes32"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"withdraw","inputs":[{"name":"collateral","type":"bytes32"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"borrow","inputs":[{"name":"collateral","type":"bytes32"},{"name":"maturity","type":"uint256"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"repay","inputs":[{"name":"collateral","type":"bytes32"},{"name":"maturity","type":"uint256"},{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
		{"type":"function","name":"posted","stateMutability":"view","inputs":[{"name":"collateral","type":"bytes32"},{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"debt","stateMutability":"view","inputs":[{"name":"collateral","type":"bytes32"},{"name":"maturity","type":"uint256"},{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"totalDebt","stateMutability":"view","inputs":[{"name":"collateral","type":"bytes32"},{"name":"maturity","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	directoryABI = `[
		{"type":"function","name":"count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"seriesAt","stateMutability":"view","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"id","type":"bytes32"},{"name":"token","type":"address"},{"name":"pool","type":"address"},{"name":"maturity","type":"uint256"}]}
	]`

	poolABI = `[
		{"type":"function","name":"sellToken","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"buyToken","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
		{"type":"function","name":"sellTokenPreview","stateMutability":"view","inputs":[{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`

	maturityTokenABI = `[
		{"type":"function","name":"redeem","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]}
	]`
)

// parseABI panics on a malformed constant; the strings above are fixed at
// compile time, so a failure here is a programming error.
func parseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: parse ABI: %v", err))
	}
	return parsed
}

var (
	parsedControllerABI = parseABI(controllerABI)
	parsedDirectoryABI  = parseABI(directoryABI)
	parsedPoolABI       = parseABI(poolABI)
	parsedTokenABI      = parseABI(maturityTokenABI)
)

// collateralBytes32 encodes a collateral type name as the bytes32 key the
// contracts use.
func collateralBytes32(ct domain.CollateralType) [32]byte {
	var out [32]byte
	copy(out[:], ct)
	return out
}

// Controller wraps the deployed collateral/debt controller contract.
type Controller struct {
	contract *bind.BoundContract
	conn     *Connector
}

// NewController binds the controller at addr.
func NewController(conn *Connector, addr common.Address) *Controller {
	backend := conn.Backend()
	return &Controller{
		contract: bind.NewBoundContract(addr, parsedControllerABI, backend, backend, backend),
		conn:     conn,
	}
}

// Post deposits collateral of the given type for the connected account.
func (c *Controller) Post(ctx context.Context, collateral domain.CollateralType, amount *big.Int) (*types.Transaction, error) {
	acct := c.conn.Account()
	tx, err := c.contract.Transact(c.conn.transactOpts(ctx), "post", collateralBytes32(collateral), acct, acct, amount)
	if err != nil {
		return nil, fmt.Errorf("chain: controller post: %w", err)
	}
	return tx, nil
}

// Withdraw removes posted collateral back to the connected account.
func (c *Controller) Withdraw(ctx context.Context, collateral domain.CollateralType, amount *big.Int) (*types.Transaction, error) {
	acct := c.conn.Account()
	tx, err := c.contract.Transact(c.conn.transactOpts(ctx), "withdraw", collateralBytes32(collateral), acct, acct, amount)
	if err != nil {
		return nil, fmt.Errorf("chain: controller withdraw: %w", err)
	}
	return tx, nil
}

// Borrow mints maturity-token debt against posted collateral.
func (c *Controller) Borrow(ctx context.Context, collateral domain.CollateralType, maturity *big.Int, amount *big.Int) (*types.Transaction, error) {
	tx, err := c.contract.Transact(c.conn.transactOpts(ctx), "borrow", collateralBytes32(collateral), maturity, c.conn.Account(), amount)
	if err != nil {
		return nil, fmt.Errorf("chain: controller borrow: %w", err)
	}
	return tx, nil
}

// Repay settles outstanding debt for the connected account.
func (c *Controller) Repay(ctx context.Context, collateral domain.CollateralType, maturity *big.Int, amount *big.Int) (*types.Transaction, error) {
	tx, err := c.contract.Transact(c.conn.transactOpts(ctx), "repay", collateralBytes32(collateral), maturity, c.conn.Account(), amount)
	if err != nil {
		return nil, fmt.Errorf("chain: controller repay: %w", err)
	}
	return tx, nil
}

// Posted reads the collateral posted by user for the given type.
func (c *Controller) Posted(ctx context.Context, collateral domain.CollateralType, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(c.conn.callOpts(ctx), &out, "posted", collateralBytes32(collateral), user); err != nil {
		return nil, fmt.Errorf("chain: controller posted: %w", err)
	}
	return out[0].(*big.Int), nil
}

// Debt reads the outstanding debt of user in the series at maturity.
func (c *Controller) Debt(ctx context.Context, collateral domain.CollateralType, maturity *big.Int, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(c.conn.callOpts(ctx), &out, "debt", collateralBytes32(collateral), maturity, user); err != nil {
		return nil, fmt.Errorf("chain: controller debt: %w", err)
	}
	return out[0].(*big.Int), nil
}

// TotalDebt reads the series-wide outstanding debt for a collateral type.
func (c *Controller) TotalDebt(ctx context.Context, collateral domain.CollateralType, maturity *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(c.conn.callOpts(ctx), &out, "totalDebt", collateralBytes32(collateral), maturity); err != nil {
		return nil, fmt.Errorf("chain: controller total debt: %w", err)
	}
	return out[0].(*big.Int), nil
}

// SeriesDirectory wraps the on-chain series listing contract.
type SeriesDirectory struct {
	contract *bind.BoundContract
	conn     *Connector
}

// NewSeriesDirectory binds the directory at addr.
func NewSeriesDirectory(conn *Connector, addr common.Address) *SeriesDirectory {
	backend := conn.Backend()
	return &SeriesDirectory{
		contract: bind.NewBoundContract(addr, parsedDirectoryABI, backend, backend, backend),
		conn:     conn,
	}
}

// SeriesEntry is one row of the on-chain series listing.
type SeriesEntry struct {
	ID       [32]byte
	Token    common.Address
	Pool     common.Address
	Maturity *big.Int
}

// Count returns the number of registered series.
func (d *SeriesDirectory) Count(ctx context.Context) (int, error) {
	var out []interface{}
	if err := d.contract.Call(d.conn.callOpts(ctx), &out, "count"); err != nil {
		return 0, fmt.Errorf("chain: directory count: %w", err)
	}
	return int(out[0].(*big.Int).Int64()), nil
}

// At returns the series entry at index i.
func (d *SeriesDirectory) At(ctx context.Context, i int) (SeriesEntry, error) {
	var out []interface{}
	if err := d.contract.Call(d.conn.callOpts(ctx), &out, "seriesAt", big.NewInt(int64(i))); err != nil {
		return SeriesEntry{}, fmt.Errorf("chain: directory seriesAt %d: %w", i, err)
	}
	return SeriesEntry{
		ID:       out[0].([32]byte),
		Token:    out[1].(common.Address),
		Pool:     out[2].(common.Address),
		Maturity: out[3].(*big.Int),
	}, nil
}

// Pool wraps a per-series AMM pool trading the maturity token against the
// underlying stablecoin.
type Pool struct {
	contract *bind.BoundContract
	conn     *Connector
}

// NewPool binds the pool at addr.
func NewPool(conn *Connector, addr common.Address) *Pool {
	backend := conn.Backend()
	return &Pool{
		contract: bind.NewBoundContract(addr, parsedPoolABI, backend, backend, backend),
		conn:     conn,
	}
}

// SellToken sells maturity tokens into the pool for stablecoin.
func (p *Pool) SellToken(ctx context.Context, amount *big.Int) (*types.Transaction, error) {
	tx, err := p.contract.Transact(p.conn.transactOpts(ctx), "sellToken", p.conn.Account(), amount)
	if err != nil {
		return nil, fmt.Errorf("chain: pool sell: %w", err)
	}
	return tx, nil
}

// BuyToken buys maturity tokens from the pool with stablecoin.
func (p *Pool) BuyToken(ctx context.Context, amount *big.Int) (*types.Transaction, error) {
	tx, err := p.contract.Transact(p.conn.transactOpts(ctx), "buyToken", p.conn.Account(), amount)
	if err != nil {
		return nil, fmt.Errorf("chain: pool buy: %w", err)
	}
	return tx, nil
}

// SellPreview quotes the stablecoin value of selling amount maturity
// tokens at the current curve state, without transacting.
func (p *Pool) SellPreview(ctx context.Context, amount *big.Int) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(p.conn.callOpts(ctx), &out, "sellTokenPreview", amount); err != nil {
		return nil, fmt.Errorf("chain: pool sell preview: %w", err)
	}
	return out[0].(*big.Int), nil
}

// MaturityToken wraps a series' fixed-maturity token contract.
type MaturityToken struct {
	contract *bind.BoundContract
	conn     *Connector
}

// NewMaturityToken binds the token at addr.
func NewMaturityToken(conn *Connector, addr common.Address) *MaturityToken {
	backend := conn.Backend()
	return &MaturityToken{
		contract: bind.NewBoundContract(addr, parsedTokenABI, backend, backend, backend),
		conn:     conn,
	}
}

// Redeem exchanges matured tokens for the underlying stablecoin.
func (t *MaturityToken) Redeem(ctx context.Context, amount *big.Int) (*types.Transaction, error) {
	tx, err := t.contract.Transact(t.conn.transactOpts(ctx), "redeem", t.conn.Account(), amount)
	if err != nil {
		return nil, fmt.Errorf("chain: token redeem: %w", err)
	}
	return tx, nil
}
