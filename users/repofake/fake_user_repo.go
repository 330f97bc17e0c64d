package fakeuserrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users    map[string]*users.User
	emailIds map[string]string // email to user id
	lock     sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:    make(map[string]*users.User),
		emailIds: make(map[string]string),
	}
}

func (ur *FakeUserRepo) Save(_ context.Context, user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) FindByEmail(_ context.Context, email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) FindByID(_ context.Context, id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	user, ok := ur.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return user, nil
}

func (ur *FakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	_, ok := ur.emailIds[email]
	return ok, nil
}

// Delete removes a user by email. Test helper, not part of users.UserRepo.
func (ur *FakeUserRepo) Delete(_ context.Context, email string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	id, ok := ur.emailIds[email]
	if !ok {
		return users.ErrNotFound
	}
	delete(ur.emailIds, email)
	delete(ur.users, id)
	return nil
}
