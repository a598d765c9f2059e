package assetledger

import (
	"context"
	"sync"

	sdkmath "cosmossdk.io/math"

	"github.com/lockstake/staking-engine/internal/types"
)

// InMemoryLedger is a self-contained asset ledger with ERC20-style balance
// and allowance semantics. It backs the local server mode and the tests.
type InMemoryLedger struct {
	assetID string
	// holder is the account all Transfer calls debit and all allowances
	// consumed by TransferFrom must have been granted to.
	holder string

	mu         sync.Mutex
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int // owner -> spender -> amount
}

func NewInMemoryLedger(assetID, holder string) *InMemoryLedger {
	return &InMemoryLedger{
		assetID:    assetID,
		holder:     holder,
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
	}
}

func (l *InMemoryLedger) AssetID() string {
	return l.assetID
}

func (l *InMemoryLedger) BalanceOf(_ context.Context, account string) (sdkmath.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balanceOf(account), nil
}

func (l *InMemoryLedger) Transfer(_ context.Context, to string, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.move(l.holder, to, amount)
}

func (l *InMemoryLedger) TransferFrom(_ context.Context, from, to string, amount sdkmath.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceOf(from, l.holder)
	if allowance.LT(amount) {
		return types.NewInsufficientFundsError(
			"allowance of %s from %s covers %s, need %s",
			l.assetID, from, allowance, amount,
		)
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.allowances[from][l.holder] = allowance.Sub(amount)
	return nil
}

// Mint credits an account out of thin air. Test and bootstrap helper.
func (l *InMemoryLedger) Mint(account string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[account] = l.balanceOf(account).Add(amount)
}

// Approve grants spender the right to pull up to amount from owner.
func (l *InMemoryLedger) Approve(owner, spender string, amount sdkmath.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[string]sdkmath.Int)
	}
	l.allowances[owner][spender] = amount
}

func (l *InMemoryLedger) balanceOf(account string) sdkmath.Int {
	if balance, ok := l.balances[account]; ok {
		return balance
	}
	return sdkmath.ZeroInt()
}

func (l *InMemoryLedger) allowanceOf(owner, spender string) sdkmath.Int {
	if granted, ok := l.allowances[owner][spender]; ok {
		return granted
	}
	return sdkmath.ZeroInt()
}

func (l *InMemoryLedger) move(from, to string, amount sdkmath.Int) error {
	if amount.IsNegative() {
		return types.NewInputError("negative transfer amount %s", amount)
	}
	balance := l.balanceOf(from)
	if balance.LT(amount) {
		return types.NewInsufficientFundsError(
			"balance of %s at %s is %s, need %s",
			l.assetID, from, balance, amount,
		)
	}
	l.balances[from] = balance.Sub(amount)
	l.balances[to] = l.balanceOf(to).Add(amount)
	return nil
}
