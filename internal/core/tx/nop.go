package tx

import "context"

// nopManager runs the function directly without any transaction semantics.
type nopManager struct{}

// Nop returns a Manager for tests and tools that work against in-memory
// repositories, where there is no database transaction to manage.
func Nop() Manager {
	return nopManager{}
}

func (nopManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
