package accounts

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory Store. Transactions snapshot the maps and
// restore them when fn fails.
type memStore struct {
	mu       sync.Mutex
	nextID   uint
	accounts map[uint]Account
	codes    map[uint]ConfirmationCode
	tokens   map[uint]SessionToken

	// failCreateCode makes CreateCode return an error once set.
	failCreateCode bool
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uint]Account{},
		codes:    map[uint]ConfirmationCode{},
		tokens:   map[uint]SessionToken{},
	}
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	accounts := cloneMap(m.accounts)
	codes := cloneMap(m.codes)
	toks := cloneMap(m.tokens)
	nextID := m.nextID
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.accounts, m.codes, m.tokens, m.nextID = accounts, codes, toks, nextID
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateAccount(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return ErrEmailTaken
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.DateJoined = time.Now()
	m.accounts[a.ID] = *a
	return nil
}

func (m *memStore) AccountByID(ctx context.Context, id uint) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &a, nil
}

func (m *memStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *memStore) SaveAccount(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = *a
	return nil
}

func (m *memStore) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	a.LastLogin = &at
	m.accounts[id] = a
	return nil
}

func (m *memStore) CreateCode(ctx context.Context, c *ConfirmationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateCode {
		return fmt.Errorf("create confirmation code: boom")
	}
	m.codes[c.AccountID] = *c
	return nil
}

func (m *memStore) CodeForAccount(ctx context.Context, accountID uint) (*ConfirmationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[accountID]
	if !ok {
		return nil, ErrCodeNotFound
	}
	return &c, nil
}

func (m *memStore) DeleteCode(ctx context.Context, accountID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.codes[accountID]
	delete(m.codes, accountID)
	return ok, nil
}

func (m *memStore) EnsureSessionToken(ctx context.Context, accountID uint) (*SessionToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[accountID]; ok {
		return &t, nil
	}
	key, err := newSessionKey()
	if err != nil {
		return nil, err
	}
	t := SessionToken{Key: key, AccountID: accountID, CreatedAt: time.Now()}
	m.tokens[accountID] = t
	return &t, nil
}

func (m *memStore) AccountIDBySessionKey(ctx context.Context, key string) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.tokens {
		if t.Key == key {
			return id, nil
		}
	}
	return 0, ErrTokenNotFound
}

func (m *memStore) accountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}
