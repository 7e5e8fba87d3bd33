package accounts

import "context"

// SessionInfo adapts the store to middleware.SessionFetcher.
type SessionInfo struct {
	Store Store
}

func (si SessionInfo) FindAccountBySessionKey(ctx context.Context, key string) (uint, error) {
	return si.Store.AccountIDBySessionKey(ctx, key)
}
