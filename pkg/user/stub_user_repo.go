package user

import (
	"context"
	"sort"
	"sync"
	"time"
)

type StubUserRepository struct {
	mu     sync.RWMutex
	nextId int
	data   map[int]User
}

func NewStubUserRepository() *StubUserRepository {
	return &StubUserRepository{nextId: 0, data: map[int]User{}}
}

func (s *StubUserRepository) CreateUser(ctx context.Context, user User) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	user.Id = s.nextId
	if user.Role == "" {
		user.Role = RoleStudent
	}
	s.data[s.nextId] = user
	return s.nextId, nil
}

func (s *StubUserRepository) GetUser(ctx context.Context, id int) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (s *StubUserRepository) GetUserByUid(ctx context.Context, uid string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.data {
		if user.Uid == uid {
			return user, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (s *StubUserRepository) GetAllUsers(ctx context.Context) ([]User, error) {
	return s.filter(func(User) bool { return true }), nil
}

func (s *StubUserRepository) GetSyncEnabledUsers(ctx context.Context) ([]User, error) {
	return s.filter(func(u User) bool { return u.Settings.CalendarSync.Enabled }), nil
}

func (s *StubUserRepository) filter(keep func(User) bool) []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]User, 0, len(s.data))
	for _, user := range s.data {
		if keep(user) {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Id < users[j].Id })
	return users
}

func (s *StubUserRepository) UpdateCalendarSync(ctx context.Context, userId int, enabled bool, calendarId string) error {
	return s.update(userId, func(u *User) {
		u.Settings.CalendarSync.Enabled = enabled
		u.Settings.CalendarSync.CalendarId = calendarId
	})
}

func (s *StubUserRepository) SetSyncEnabled(ctx context.Context, userId int, enabled bool) error {
	return s.update(userId, func(u *User) { u.Settings.CalendarSync.Enabled = enabled })
}

func (s *StubUserRepository) SetLastSyncedAt(ctx context.Context, userId int, at time.Time) error {
	return s.update(userId, func(u *User) { u.Settings.CalendarSync.LastSyncedAt = &at })
}

func (s *StubUserRepository) update(userId int, fn func(u *User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.data[userId]
	if !ok {
		return ErrUserNotFound
	}
	fn(&user)
	s.data[userId] = user
	return nil
}
