package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

// UserRepository keeps accounts in memory. It is used when no MongoDB is
// configured.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if user.Email != "" && u.Email == user.Email {
			return nil, domain.ErrUserExists
		}
		if user.SocialSubject != "" && u.SocialProvider == user.SocialProvider && u.SocialSubject == user.SocialSubject {
			return nil, domain.ErrUserExists
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	out := clone
	return &out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.ID == id })
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email != "" && u.Email == email })
}

func (r *UserRepository) FindBySocial(_ context.Context, provider, subject string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.SocialSubject != "" && u.SocialProvider == provider && u.SocialSubject == subject
	})
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *UserRepository) List(_ context.Context, f ports.ListUsersFilter) ([]*domain.User, int64, error) {
	r.mu.RLock()
	search := strings.ToLower(f.Search)
	var matched []*domain.User
	for _, u := range r.users {
		if search != "" && !matchesUser(u, search) {
			continue
		}
		clone := *u
		matched = append(matched, &clone)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	// Compare page indexes before multiplying so huge pages cannot overflow.
	if len(matched) == 0 || f.Page < 1 || f.Limit < 1 || f.Page-1 > (len(matched)-1)/f.Limit {
		return []*domain.User{}, total, nil
	}
	start := (f.Page - 1) * f.Limit
	end := len(matched)
	if f.Limit < end-start {
		end = start + f.Limit
	}
	return matched[start:end], total, nil
}

func (r *UserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func matchesUser(u *domain.User, search string) bool {
	for _, field := range []string{u.Username, u.Email, u.Phone, u.Organization} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
