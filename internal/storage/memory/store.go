// Package memory implements the talehub repositories in process memory.
// It mirrors the gorm store's contract, including unique pairs and the
// refresh-token compare-and-swap, and is used by service and API tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/domain"
)

type pair struct{ a, b uint }

// Store keeps every table behind one RWMutex so each method is atomic.
type Store struct {
	mu sync.RWMutex

	nextID uint
	now    func() time.Time

	accounts      map[uint]domain.Account
	history       map[uint][]uint
	stories       map[uint]domain.Story
	likes         map[pair]uint // (story, account) -> insertion sequence
	comments      map[uint]domain.Comment
	follows       map[pair]struct{}
	notifications map[uint]domain.Notification
}

func New() *Store {
	return &Store{
		now:           time.Now,
		accounts:      make(map[uint]domain.Account),
		history:       make(map[uint][]uint),
		stories:       make(map[uint]domain.Story),
		likes:         make(map[pair]uint),
		comments:      make(map[uint]domain.Comment),
		follows:       make(map[pair]struct{}),
		notifications: make(map[uint]domain.Notification),
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// Accounts

func (s *Store) CreateAccount(_ context.Context, a domain.NewAccount) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return domain.Account{}, apperr.Conflict("user with email or username already exists")
		}
	}
	acc := domain.Account{
		ID:           s.id(),
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    s.now(),
	}
	s.accounts[acc.ID] = acc
	return acc, nil
}

func (s *Store) FindAccountByID(_ context.Context, id uint) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, apperr.NotFound("account not found")
	}
	return acc, nil
}

func (s *Store) FindAccountByEmail(_ context.Context, email string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Email == email {
			return acc, nil
		}
	}
	return domain.Account{}, apperr.NotFound("account not found")
}

func (s *Store) FindAccountByUsername(_ context.Context, username string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Username == username {
			return acc, nil
		}
	}
	return domain.Account{}, apperr.NotFound("user " + username + " not found")
}

func (s *Store) FindAccountsByIDs(_ context.Context, ids []uint) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Account
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (s *Store) SearchAccounts(_ context.Context, fragment string, limit int) ([]domain.AccountSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fragment = strings.ToLower(fragment)
	var out []domain.AccountSummary
	for _, acc := range s.accounts {
		if strings.Contains(strings.ToLower(acc.Username), fragment) {
			out = append(out, domain.AccountSummary{ID: acc.ID, Username: acc.Username})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SetRefreshTokenHash(_ context.Context, accountID uint, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperr.NotFound("account not found")
	}
	acc.RefreshTokenHash = hash
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) SwapRefreshTokenHash(_ context.Context, accountID uint, oldHash, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok || acc.RefreshTokenHash != oldHash {
		return false, nil
	}
	acc.RefreshTokenHash = newHash
	s.accounts[accountID] = acc
	return true, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, accountID uint, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return apperr.NotFound("account not found")
	}
	acc.PasswordHash = hash
	s.accounts[accountID] = acc
	return nil
}

func (s *Store) UpdateUsername(_ context.Context, accountID uint, username string) (domain.Account, error) {
	return s.updateAccount(accountID, "username", func(a *domain.Account) *string { return &a.Username }, username)
}

func (s *Store) UpdateEmail(_ context.Context, accountID uint, email string) (domain.Account, error) {
	return s.updateAccount(accountID, "email", func(a *domain.Account) *string { return &a.Email }, email)
}

func (s *Store) updateAccount(accountID uint, column string, field func(*domain.Account) *string, value string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return domain.Account{}, apperr.NotFound("account not found")
	}
	for id, other := range s.accounts {
		if id != accountID && *field(&other) == value {
			return domain.Account{}, apperr.Conflict(column + " is already taken")
		}
	}
	*field(&acc) = value
	s.accounts[accountID] = acc
	return acc, nil
}

func (s *Store) AppendStoryHistory(_ context.Context, accountID, storyID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.history[accountID] {
		if id == storyID {
			return nil
		}
	}
	s.history[accountID] = append(s.history[accountID], storyID)
	return nil
}

func (s *Store) StoryHistory(_ context.Context, accountID uint) ([]domain.StorySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.StorySummary, 0, len(s.history[accountID]))
	kept := s.history[accountID][:0]
	for _, id := range s.history[accountID] {
		st, ok := s.stories[id]
		if !ok {
			continue
		}
		kept = append(kept, id)
		out = append(out, domain.StorySummary{ID: id, Title: st.Title})
	}
	s.history[accountID] = kept
	return out, nil
}
