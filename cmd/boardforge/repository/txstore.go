package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/boardforge/boardforge/cmd/boardforge/service"
	"github.com/boardforge/boardforge/common/db"
)

// GraphStore bundles the per-entity repositories into one value
// satisfying the service store interfaces. Backed by the pool for plain
// reads and by an open transaction inside InTx.
type GraphStore struct {
	*PrototypeRepository
	*PlayerRepository
	*PartRepository
	*AccessRepository
	*RBACRepository
}

// NewGraphStore creates a graph store over the given querier
func NewGraphStore(q Querier) *GraphStore {
	return &GraphStore{
		PrototypeRepository: NewPrototypeRepository(q),
		PlayerRepository:    NewPlayerRepository(q),
		PartRepository:      NewPartRepository(q),
		AccessRepository:    NewAccessRepository(q),
		RBACRepository:      NewRBACRepository(q),
	}
}

// TxRunner runs replication passes against a transaction-backed store.
type TxRunner struct {
	db *db.DB
}

// NewTxRunner creates a new transaction runner
func NewTxRunner(database *db.DB) *TxRunner {
	return &TxRunner{db: database}
}

// InTx opens a transaction, hands fn a store bound to it, and commits
// when fn returns nil. Any error rolls the whole transaction back.
func (r *TxRunner) InTx(ctx context.Context, fn func(service.Store) error) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		return fn(NewGraphStore(tx))
	})
}
