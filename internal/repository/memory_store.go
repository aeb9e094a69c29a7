package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"folio-api/internal/domain"
)

// MemoryStore implementa Store en memoria. Cada transaccion trabaja sobre una
// copia del estado que reemplaza al original solo si fn no devuelve error.
// Pensado para tests y desarrollo local.
type MemoryStore struct {
	mu   sync.Mutex
	data memoryData
}

type memoryData struct {
	users    map[string]domain.User
	accounts map[string]domain.Account
	codes    []domain.VerificationCode
	sessions []domain.Session
}

func newMemoryData() memoryData {
	return memoryData{
		users:    make(map[string]domain.User),
		accounts: make(map[string]domain.Account),
	}
}

func (d memoryData) clone() memoryData {
	return memoryData{
		users:    maps.Clone(d.users),
		accounts: maps.Clone(d.accounts),
		codes:    slices.Clone(d.codes),
		sessions: slices.Clone(d.sessions),
	}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, memoryRepos{run: direct(&work)}); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *MemoryStore) Users() UserRepository       { return memoryUsers{run: s.locked} }
func (s *MemoryStore) Accounts() AccountRepository { return memoryAccounts{run: s.locked} }
func (s *MemoryStore) Codes() CodeRepository       { return memoryCodes{run: s.locked} }
func (s *MemoryStore) Sessions() SessionRepository { return memorySessions{run: s.locked} }

func (s *MemoryStore) locked(fn func(*memoryData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

type runner func(fn func(*memoryData) error) error

func direct(d *memoryData) runner {
	return func(fn func(*memoryData) error) error { return fn(d) }
}

type memoryRepos struct {
	run runner
}

func (r memoryRepos) Users() UserRepository       { return memoryUsers{run: r.run} }
func (r memoryRepos) Accounts() AccountRepository { return memoryAccounts{run: r.run} }
func (r memoryRepos) Codes() CodeRepository       { return memoryCodes{run: r.run} }
func (r memoryRepos) Sessions() SessionRepository { return memorySessions{run: r.run} }

type memoryUsers struct {
	run runner
}

func (r memoryUsers) Create(_ context.Context, user domain.User) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.users[user.ID]; ok {
			return ErrDuplicate
		}
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		d.users[user.ID] = user
		return nil
	})
}

func (r memoryUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	var out domain.User
	err := r.run(func(d *memoryData) error {
		u, ok := d.users[id]
		if !ok {
			return ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (domain.User, error) {
	if username == "" {
		return domain.User{}, ErrNotFound
	}
	return r.find(func(u domain.User) bool { return u.Username == username })
}

// Las variantes ForUpdate no necesitan bloqueo propio: las transacciones en
// memoria ya se serializan.
func (r memoryUsers) GetByIDForUpdate(ctx context.Context, id string) (domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r memoryUsers) GetByEmailForUpdate(ctx context.Context, email string) (domain.User, error) {
	return r.GetByEmail(ctx, email)
}

func (r memoryUsers) Update(_ context.Context, user domain.User) error {
	return r.run(func(d *memoryData) error {
		if _, ok := d.users[user.ID]; !ok {
			return ErrNotFound
		}
		if err := checkUserUnique(d, user); err != nil {
			return err
		}
		d.users[user.ID] = user
		return nil
	})
}

func (r memoryUsers) find(match func(domain.User) bool) (domain.User, error) {
	var out domain.User
	err := r.run(func(d *memoryData) error {
		for _, u := range d.users {
			if match(u) {
				out = u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func checkUserUnique(d *memoryData, user domain.User) error {
	for id, u := range d.users {
		if id == user.ID {
			continue
		}
		if u.Email == user.Email {
			return ErrDuplicate
		}
		if user.Username != "" && u.Username == user.Username {
			return ErrDuplicate
		}
	}
	return nil
}

type memoryAccounts struct {
	run runner
}

func accountKey(provider, providerAccountID string) string {
	return provider + "|" + providerAccountID
}

func (r memoryAccounts) Create(_ context.Context, account domain.Account) error {
	return r.run(func(d *memoryData) error {
		key := accountKey(account.Provider, account.ProviderAccountID)
		if _, ok := d.accounts[key]; ok {
			return ErrDuplicate
		}
		d.accounts[key] = account
		return nil
	})
}

func (r memoryAccounts) GetByProvider(_ context.Context, provider, providerAccountID string) (domain.Account, error) {
	var out domain.Account
	err := r.run(func(d *memoryData) error {
		a, ok := d.accounts[accountKey(provider, providerAccountID)]
		if !ok {
			return ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r memoryAccounts) ListByUser(_ context.Context, userID string) ([]domain.Account, error) {
	var out []domain.Account
	err := r.run(func(d *memoryData) error {
		for _, a := range d.accounts {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

type memoryCodes struct {
	run runner
}

func (r memoryCodes) Create(_ context.Context, code domain.VerificationCode) error {
	return r.run(func(d *memoryData) error {
		d.codes = append(d.codes, code)
		return nil
	})
}

func (r memoryCodes) FindLatestUnexpired(_ context.Context, userID string, purpose domain.Purpose, now time.Time) (domain.VerificationCode, error) {
	var out domain.VerificationCode
	err := r.run(func(d *memoryData) error {
		found := false
		// los codigos se guardan en orden de insercion; gana el ultimo en empates
		for _, c := range d.codes {
			if c.UserID != userID || c.Purpose != purpose || c.Expired(now) {
				continue
			}
			if !found || !c.CreatedAt.Before(out.CreatedAt) {
				out = c
				found = true
			}
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
	return out, err
}

func (r memoryCodes) DeleteForUser(_ context.Context, userID string, purpose domain.Purpose) error {
	return r.run(func(d *memoryData) error {
		d.codes = slices.DeleteFunc(d.codes, func(c domain.VerificationCode) bool {
			return c.UserID == userID && c.Purpose == purpose
		})
		return nil
	})
}

func (r memoryCodes) ListForUser(_ context.Context, userID string, purpose domain.Purpose) ([]domain.VerificationCode, error) {
	var out []domain.VerificationCode
	err := r.run(func(d *memoryData) error {
		for _, c := range d.codes {
			if c.UserID == userID && c.Purpose == purpose {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

type memorySessions struct {
	run runner
}

func (r memorySessions) Create(_ context.Context, session domain.Session) error {
	return r.run(func(d *memoryData) error {
		for _, s := range d.sessions {
			if s.ID == session.ID {
				return ErrDuplicate
			}
		}
		d.sessions = append(d.sessions, session)
		return nil
	})
}

func (r memorySessions) FindActiveByFingerprint(_ context.Context, userID, fingerprint string, now time.Time) (domain.Session, error) {
	var out domain.Session
	err := r.run(func(d *memoryData) error {
		for _, s := range d.sessions {
			if s.UserID == userID && s.Fingerprint == fingerprint && s.Active(now) {
				out = s
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memorySessions) Revoke(_ context.Context, id string) (bool, error) {
	var revoked bool
	err := r.run(func(d *memoryData) error {
		for i := range d.sessions {
			if d.sessions[i].ID == id && !d.sessions[i].Revoked {
				d.sessions[i].Revoked = true
				revoked = true
			}
		}
		return nil
	})
	return revoked, err
}

func (r memorySessions) RevokeByFingerprint(_ context.Context, fingerprint string) (int64, error) {
	var n int64
	err := r.run(func(d *memoryData) error {
		for i := range d.sessions {
			if d.sessions[i].Fingerprint == fingerprint && !d.sessions[i].Revoked {
				d.sessions[i].Revoked = true
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r memorySessions) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	var out []domain.Session
	err := r.run(func(d *memoryData) error {
		for _, s := range d.sessions {
			if s.UserID == userID {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}
