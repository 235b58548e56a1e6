package auth

import (
	"encoding/json"
	"errors"

	badger "github.com/dgraph-io/badger/v4"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// Key prefixes inside the badger keyspace. Users are stored as JSON under
// their ID; a secondary index maps usernames back to IDs.
const (
	userKeyPrefix     = "user:"
	usernameKeyPrefix = "username:"
)

// BadgerUserStore persists users in an embedded badger database so accounts
// survive control plane restarts.
type BadgerUserStore struct {
	db *badger.DB
}

// NewBadgerUserStore opens (or creates) the badger database at path.
func NewBadgerUserStore(path string) (*BadgerUserStore, error) {
	options := badger.DefaultOptions(path)
	options.Logger = nil

	db, err := badger.Open(options)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to open user database", err)
	}
	return &BadgerUserStore{db: db}, nil
}

func userKey(id string) []byte {
	return []byte(userKeyPrefix + id)
}

func usernameKey(username string) []byte {
	return []byte(usernameKeyPrefix + username)
}

func (s *BadgerUserStore) Put(user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to encode user", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		// Drop the old username index entry on rename.
		if item, err := txn.Get(userKey(user.ID)); err == nil {
			var previous User
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &previous) }); err == nil &&
				previous.Username != user.Username {
				if err := txn.Delete(usernameKey(previous.Username)); err != nil {
					return err
				}
			}
		}

		if err := txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.Username), []byte(user.ID))
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to store user", err)
	}
	return nil
}

func (s *BadgerUserStore) Get(id string) (User, error) {
	var user User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &user) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.Newf(apperrors.CodeNotFound, "user %s not found", id)
	}
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to load user", err)
	}
	return user, nil
}

func (s *BadgerUserStore) GetByUsername(username string) (User, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return User{}, apperrors.Newf(apperrors.CodeNotFound, "user %q not found", username)
	}
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeIOFailure, "failed to resolve username", err)
	}
	return s.Get(id)
}

func (s *BadgerUserStore) Delete(id string) error {
	user, err := s.Get(id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(userKey(id)); err != nil {
			return err
		}
		return txn.Delete(usernameKey(user.Username))
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeIOFailure, "failed to delete user", err)
	}
	return nil
}

func (s *BadgerUserStore) List() ([]User, error) {
	var users []User
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(userKeyPrefix)

		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var user User
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &user) }); err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to list users", err)
	}
	return users, nil
}

func (s *BadgerUserStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(userKeyPrefix)
		options.PrefetchValues = false

		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeIOFailure, "failed to count users", err)
	}
	return count, nil
}

func (s *BadgerUserStore) Close() error {
	return s.db.Close()
}
