package ports

import "context"

// TxManager runs fn as one atomic unit. Repositories and the ledger look up
// the active transaction from the context passed to fn.
// If fn returns an error every write made through that context is rolled back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
