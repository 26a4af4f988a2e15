package pg

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"qazna.org/txengine/internal/ledger"
)

// DefaultTable receives balance snapshots unless WithTable says otherwise.
const DefaultTable = "account_balances"

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Store writes end-of-run balance snapshots. Snapshots are append-only and
// keyed by run id; the engine never reads them back.
type Store struct {
	db    *sql.DB
	table string
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the snapshot table. Invalid identifiers are ignored.
func WithTable(name string) Option {
	return func(s *Store) {
		if identifier.MatchString(name) {
			s.table = name
		}
	}
}

// Open connects through the pgx database/sql driver.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, opts...), nil
}

// New wraps an existing handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, table: DefaultTable}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// EnsureSchema creates the snapshot table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		create table if not exists %s (
			run_id      text        not null,
			client      integer     not null,
			available   numeric     not null,
			held        numeric     not null,
			total       numeric     not null,
			locked      boolean     not null,
			recorded_at timestamptz not null,
			primary key (run_id, client)
		)`, s.table))
	return err
}

// SaveBalances stores every balance of a run in a single transaction.
func (s *Store) SaveBalances(ctx context.Context, runID string, balances []ledger.Balance) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		insert into %s(run_id, client, available, held, total, locked, recorded_at)
		values ($1,$2,$3,$4,$5,$6,$7)`, s.table)
	now := time.Now().UTC()
	for _, b := range balances {
		if _, err := tx.ExecContext(ctx, query,
			runID, int64(b.Client), b.Available, b.Held, b.Total, b.Locked, now,
		); err != nil {
			return fmt.Errorf("insert balance for client %d: %w", b.Client, err)
		}
	}
	return tx.Commit()
}

// CountBalances returns the number of rows stored for runID.
func (s *Store) CountBalances(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from %s where run_id=$1`, s.table), runID,
	).Scan(&n)
	return n, err
}
