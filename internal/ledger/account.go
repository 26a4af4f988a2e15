package ledger

import "github.com/shopspring/decimal"

// Account holds one client's balances. Accounts are created by the Engine on
// first reference and are never removed.
type Account struct {
	id        ClientID
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

func newAccount(id ClientID) *Account {
	return &Account{id: id, available: decimal.Zero, held: decimal.Zero}
}

func (a *Account) ID() ClientID               { return a.id }
func (a *Account) Available() decimal.Decimal { return a.available }
func (a *Account) Held() decimal.Decimal      { return a.held }
func (a *Account) Locked() bool               { return a.locked }

// Total is available + held. It is derived, never stored.
func (a *Account) Total() decimal.Decimal { return a.available.Add(a.held) }

// Balance returns a reporting snapshot of the account.
func (a *Account) Balance() Balance {
	return Balance{
		Client:    a.id,
		Available: a.available,
		Held:      a.held,
		Total:     a.Total(),
		Locked:    a.locked,
	}
}

func (a *Account) reject(code Code, kind Kind, tx TxID) error {
	return &Error{Code: code, Client: a.id, Tx: tx, Kind: kind}
}

// Deposit credits available funds. The amount is taken as given.
func (a *Account) Deposit(d Deposit) error {
	if a.locked {
		return a.reject(CodeAccountLocked, KindDeposit, d.Tx)
	}
	a.available = a.available.Add(d.Amount)
	return nil
}

// Withdraw debits available funds. Available must be strictly greater than
// the amount; withdrawing the whole available balance is rejected.
func (a *Account) Withdraw(w Withdrawal) error {
	if a.locked {
		return a.reject(CodeAccountLocked, KindWithdrawal, w.Tx)
	}
	if !a.available.GreaterThan(w.Amount) {
		return a.reject(CodeInsufficientFunds, KindWithdrawal, w.Tx)
	}
	a.available = a.available.Sub(w.Amount)
	return nil
}

// Dispute moves the disputed amount from available to held. Available may
// go negative.
func (a *Account) Dispute(d Dispute) error {
	if a.locked {
		return a.reject(CodeAccountLocked, KindDispute, d.Transfer.ID())
	}
	amt := d.Amount()
	a.held = a.held.Add(amt)
	a.available = a.available.Sub(amt)
	return nil
}

// Resolve releases the disputed amount from held back to available.
func (a *Account) Resolve(r Resolve) error {
	tx := r.Dispute.Transfer.ID()
	if a.locked {
		return a.reject(CodeAccountLocked, KindResolve, tx)
	}
	amt := r.Dispute.Amount()
	if a.held.LessThan(amt) {
		return a.reject(CodeInsufficientHeldFunds, KindResolve, tx)
	}
	a.held = a.held.Sub(amt)
	a.available = a.available.Add(amt)
	return nil
}

// Chargeback reverses a dispute and locks the account.
//
// It does not check locked. For a disputed withdrawal, available is credited
// with the held balance before the decrement plus the disputed amount; a
// disputed deposit credits nothing.
func (a *Account) Chargeback(c Chargeback) error {
	return a.chargeback(c, false)
}

func (a *Account) chargeback(c Chargeback, lockCheck bool) error {
	tx := c.Dispute.Transfer.ID()
	if lockCheck && a.locked {
		return a.reject(CodeAccountLocked, KindChargeback, tx)
	}
	amt := c.Dispute.Amount()
	if a.held.LessThan(amt) {
		return a.reject(CodeInsufficientHeldFunds, KindChargeback, tx)
	}
	switch c.Dispute.Transfer.(type) {
	case Withdrawal:
		a.available = a.available.Add(a.held.Add(amt))
	case Deposit:
	}
	a.held = a.held.Sub(amt)
	a.locked = true
	return nil
}
