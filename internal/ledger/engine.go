package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Engine applies records to accounts and tracks the dispute lifecycle of
// every deposit and withdrawal. It owns the account table and the
// transaction registry exclusively.
//
// Engine is not safe for concurrent use: records are applied one at a time
// in input order.
type Engine struct {
	accounts map[ClientID]*Account
	txs      map[TxID]*TransactionRecord
	strict   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrictLifecycle closes the lifecycle gaps of the default mode:
// locked accounts reject chargebacks, transaction ids cannot be reused,
// records only move created -> disputed -> settled, bookkeeping is written
// only when the balance operation succeeds, and a record can only be
// disputed by the client it belongs to.
func WithStrictLifecycle(on bool) Option {
	return func(e *Engine) { e.strict = on }
}

// NewEngine creates an engine with no accounts and an empty registry.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		accounts: make(map[ClientID]*Account),
		txs:      make(map[TxID]*TransactionRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Strict reports whether strict lifecycle mode is on.
func (e *Engine) Strict() bool { return e.strict }

// Account returns the account for client, creating it with zero balances
// on first reference.
func (e *Engine) Account(client ClientID) *Account {
	acc, ok := e.accounts[client]
	if !ok {
		acc = newAccount(client)
		e.accounts[client] = acc
	}
	return acc
}

// Apply resolves the record's account and settles the record against it.
// The account is created even when the record is rejected.
func (e *Engine) Apply(r Record) error {
	return e.Settle(r.Kind, e.Account(r.Client), r.Tx, r.Amount)
}

// Settle dispatches one record by kind. amount is only used for deposits
// and withdrawals. A non-nil error is always an *Error and only rejects this
// record; the engine stays usable.
func (e *Engine) Settle(kind Kind, acct *Account, tx TxID, amount decimal.Decimal) error {
	switch kind {
	case KindDeposit:
		return e.transfer(acct, Deposit{Tx: tx, Amount: amount})
	case KindWithdrawal:
		return e.transfer(acct, Withdrawal{Tx: tx, Amount: amount})
	case KindDispute:
		return e.dispute(acct, tx)
	case KindResolve, KindChargeback:
		return e.settle(kind, acct, tx)
	default:
		return &Error{Code: CodeUnknownTransactionKind, Client: acct.ID(), Tx: tx, Kind: kind}
	}
}

func (e *Engine) transfer(acct *Account, t Transfer) error {
	if e.strict {
		if _, ok := e.txs[t.ID()]; ok {
			return &Error{Code: CodeDuplicateTransaction, Client: acct.ID(), Tx: t.ID(), Kind: t.Kind()}
		}
	}

	var err error
	switch t := t.(type) {
	case Deposit:
		err = acct.Deposit(t)
	case Withdrawal:
		err = acct.Withdraw(t)
	}
	if err != nil && e.strict {
		return err
	}

	// Overwrites any earlier record under the same id.
	e.txs[t.ID()] = &TransactionRecord{Client: acct.ID(), Transfer: t}
	return err
}

func (e *Engine) lookup(kind Kind, acct *Account, tx TxID) (*TransactionRecord, error) {
	rec, ok := e.txs[tx]
	if !ok {
		return nil, &Error{Code: CodeTransactionNotFound, Client: acct.ID(), Tx: tx, Kind: kind}
	}
	if e.strict && rec.Client != acct.ID() {
		return nil, &Error{Code: CodeClientMismatch, Client: acct.ID(), Tx: tx, Kind: kind}
	}
	return rec, nil
}

func (e *Engine) dispute(acct *Account, tx TxID) error {
	rec, err := e.lookup(KindDispute, acct, tx)
	if err != nil {
		return err
	}
	if e.strict && rec.State() != StateCreated {
		return &Error{Code: CodeInvalidTransition, Client: acct.ID(), Tx: tx, Kind: KindDispute}
	}

	d := Dispute{Transfer: rec.Transfer}
	err = acct.Dispute(d)
	if err != nil && e.strict {
		return err
	}
	rec.Dispute = &d
	return err
}

func (e *Engine) settle(kind Kind, acct *Account, tx TxID) error {
	rec, err := e.lookup(kind, acct, tx)
	if err != nil {
		return err
	}
	if rec.Dispute == nil {
		return &Error{Code: CodeDisputeNotFound, Client: acct.ID(), Tx: tx, Kind: kind}
	}
	if e.strict && rec.State() != StateDisputed {
		return &Error{Code: CodeInvalidTransition, Client: acct.ID(), Tx: tx, Kind: kind}
	}

	d := *rec.Dispute
	var s Settlement
	switch kind {
	case KindResolve:
		r := Resolve{Dispute: d}
		err = acct.Resolve(r)
		s = r
	case KindChargeback:
		c := Chargeback{Dispute: d}
		err = acct.chargeback(c, e.strict)
		s = c
	}
	if err != nil && e.strict {
		return err
	}
	rec.Settlement = s
	return err
}

// Transaction returns a copy of the registry entry for tx.
func (e *Engine) Transaction(tx TxID) (TransactionRecord, bool) {
	rec, ok := e.txs[tx]
	if !ok {
		return TransactionRecord{}, false
	}
	out := *rec
	if rec.Dispute != nil {
		d := *rec.Dispute
		out.Dispute = &d
	}
	return out, true
}

// Len returns the number of known accounts.
func (e *Engine) Len() int { return len(e.accounts) }

// Balances returns a snapshot of every account sorted by client id.
func (e *Engine) Balances() []Balance {
	res := make([]Balance, 0, len(e.accounts))
	for _, acc := range e.accounts {
		res = append(res, acc.Balance())
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Client < res[j].Client
	})
	return res
}
