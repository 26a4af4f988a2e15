package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account. Unique and stable for a run.
type ClientID uint16

// TxID identifies a transaction. Transaction ids are global, not per client.
type TxID uint32

// Kind is the type column of an incoming record.
type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindDispute    Kind = "dispute"
	KindResolve    Kind = "resolve"
	KindChargeback Kind = "chargeback"
)

// ParseKind normalises case and surrounding whitespace. Unknown values are
// returned as-is so the engine can reject them with ErrUnknownKind.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether k is one of the five record kinds.
func (k Kind) Known() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindDispute, KindResolve, KindChargeback:
		return true
	}
	return false
}

// Record is one parsed input row. Amount is zero for dispute, resolve and
// chargeback rows.
type Record struct {
	Kind   Kind
	Client ClientID
	Tx     TxID
	Amount decimal.Decimal
}

// Transfer is the original movement of funds: either Deposit or Withdrawal.
// The set is closed; only this package can add variants.
type Transfer interface {
	ID() TxID
	Value() decimal.Decimal
	Kind() Kind
	isTransfer()
}

// Deposit credits an account.
type Deposit struct {
	Tx     TxID
	Amount decimal.Decimal
}

func (d Deposit) ID() TxID               { return d.Tx }
func (d Deposit) Value() decimal.Decimal { return d.Amount }
func (Deposit) Kind() Kind               { return KindDeposit }
func (Deposit) isTransfer()              {}

// Withdrawal debits an account.
type Withdrawal struct {
	Tx     TxID
	Amount decimal.Decimal
}

func (w Withdrawal) ID() TxID               { return w.Tx }
func (w Withdrawal) Value() decimal.Decimal { return w.Amount }
func (Withdrawal) Kind() Kind               { return KindWithdrawal }
func (Withdrawal) isTransfer()              {}

// Dispute is a value snapshot of the transfer it contests, taken when the
// dispute is opened. Later changes to the registry do not affect it.
type Dispute struct {
	Transfer Transfer
}

// Amount is the disputed amount.
func (d Dispute) Amount() decimal.Decimal { return d.Transfer.Value() }

// Settlement is the terminal outcome of a dispute: Resolve or Chargeback.
type Settlement interface {
	Disputed() Dispute
	Kind() Kind
	isSettlement()
}

// Resolve releases held funds back to available.
type Resolve struct {
	Dispute Dispute
}

func (r Resolve) Disputed() Dispute { return r.Dispute }
func (Resolve) Kind() Kind          { return KindResolve }
func (Resolve) isSettlement()       {}

// Chargeback reverses the disputed funds and locks the account.
type Chargeback struct {
	Dispute Dispute
}

func (c Chargeback) Disputed() Dispute { return c.Dispute }
func (Chargeback) Kind() Kind          { return KindChargeback }
func (Chargeback) isSettlement()       {}

// State is the lifecycle position of a transaction record.
type State string

const (
	StateCreated     State = "created"
	StateDisputed    State = "disputed"
	StateResolved    State = "resolved"
	StateChargedBack State = "charged_back"
)

// TransactionRecord is the registry entry for a deposit or withdrawal.
// Client is the account the transfer was first applied to.
type TransactionRecord struct {
	Client     ClientID
	Transfer   Transfer
	Dispute    *Dispute
	Settlement Settlement
}

// State derives the lifecycle position from the bookkeeping fields.
func (r TransactionRecord) State() State {
	switch s := r.Settlement.(type) {
	case Resolve:
		return StateResolved
	case Chargeback:
		return StateChargedBack
	case nil:
	default:
		panic("ledger: unexpected settlement " + string(s.Kind()))
	}
	if r.Dispute != nil {
		return StateDisputed
	}
	return StateCreated
}

// Balance is a read-only snapshot of an account for reporting.
type Balance struct {
	Client    ClientID        `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}
