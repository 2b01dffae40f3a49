package auth

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// mockRepository keeps users in memory and enforces the same uniqueness
// rules as the users table.
type mockRepository struct {
	users  map[uint]*User
	nextID uint
	now    func() time.Time
	mu     sync.RWMutex

	// failWith, when set, is returned by every call.
	failWith error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users: make(map[uint]*User),
		now:   time.Now,
	}
}

func (r *mockRepository) Create(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if r.conflicts(user) {
		return ErrDuplicate
	}

	r.nextID++
	user.ID = r.nextID
	// Strictly increasing timestamps keep created_at ordering stable.
	user.CreatedAt = r.now().Add(time.Duration(r.nextID) * time.Microsecond)
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *mockRepository) Update(_ context.Context, user *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	if r.conflicts(user) {
		return ErrDuplicate
	}
	user.UpdatedAt = r.now()
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *mockRepository) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	for _, u := range r.users {
		if u.CreatedByID != nil && *u.CreatedByID == id {
			u.CreatedByID = nil
		}
	}
	return nil
}

func (r *mockRepository) GetByID(_ context.Context, id uint) (*User, error) {
	return r.find(func(u *User) bool { return u.ID == id })
}

func (r *mockRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	email = normalizeEmail(email)
	return r.find(func(u *User) bool { return u.Email != nil && normalizeEmail(*u.Email) == email })
}

func (r *mockRepository) FindByName(_ context.Context, firstName, lastName string, step int) ([]*User, error) {
	first, last := normalizeName(firstName), normalizeName(lastName)
	users, err := r.filter(func(u *User) bool {
		return u.OnboardingStep == step &&
			strings.ToLower(deref(u.FirstName)) == first &&
			strings.ToLower(deref(u.LastName)) == last
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *mockRepository) EmailTaken(_ context.Context, email string, excludeID uint) (bool, error) {
	email = normalizeEmail(email)
	users, err := r.filter(func(u *User) bool {
		return u.ID != excludeID && u.Email != nil && normalizeEmail(*u.Email) == email
	})
	return len(users) > 0, err
}

func (r *mockRepository) UsernameTaken(_ context.Context, username string, excludeID uint) (bool, error) {
	users, err := r.filter(func(u *User) bool {
		return u.ID != excludeID && u.Username != nil && *u.Username == username
	})
	return len(users) > 0, err
}

func (r *mockRepository) ListUsers(_ context.Context) ([]*User, error) {
	users, err := r.filter(func(*User) bool { return true })
	if err != nil {
		return nil, err
	}
	sortNewestFirst(users)
	return users, nil
}

func (r *mockRepository) ListProvisioned(_ context.Context, status string) ([]*User, error) {
	users, err := r.filter(func(u *User) bool {
		if u.CreatedByID == nil {
			return false
		}
		switch status {
		case StatusUnclaimed:
			return u.OnboardingStep == StepUnclaimed
		case StatusInProgress:
			return u.OnboardingStep > StepUnclaimed && u.OnboardingStep < StepActive
		case StatusComplete:
			return u.OnboardingStep >= StepActive
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(users)
	return users, nil
}

// Transaction snapshots the store and restores it if fn fails.
func (r *mockRepository) Transaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	snapshot := make(map[uint]*User, len(r.users))
	for id, u := range r.users {
		snapshot[id] = cloneUser(u)
	}
	nextID := r.nextID
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.users = snapshot
		r.nextID = nextID
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *mockRepository) find(match func(*User) bool) (*User, error) {
	users, err := r.filter(match)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users[0], nil
}

func (r *mockRepository) filter(match func(*User) bool) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []*User
	for _, u := range r.users {
		if match(u) {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// conflicts must be called with the lock held.
func (r *mockRepository) conflicts(user *User) bool {
	for _, u := range r.users {
		if u.ID == user.ID {
			continue
		}
		if user.Email != nil && u.Email != nil && normalizeEmail(*u.Email) == normalizeEmail(*user.Email) {
			return true
		}
		if user.Username != nil && u.Username != nil && *u.Username == *user.Username {
			return true
		}
	}
	return false
}

func sortNewestFirst(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID > users[j].ID
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
}

func cloneUser(u *User) *User {
	c := *u
	c.Email = clonePtr(u.Email)
	c.Username = clonePtr(u.Username)
	c.PasswordHash = clonePtr(u.PasswordHash)
	c.FirstName = clonePtr(u.FirstName)
	c.LastName = clonePtr(u.LastName)
	c.PendingEmail = clonePtr(u.PendingEmail)
	c.AIProvider = clonePtr(u.AIProvider)
	c.AIAPIKeyEncrypted = clonePtr(u.AIAPIKeyEncrypted)
	if u.CreatedByID != nil {
		id := *u.CreatedByID
		c.CreatedByID = &id
	}
	return &c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
