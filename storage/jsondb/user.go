package jsondb

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) find(doc *document, match func(usr *user.User) bool) int {
	for i := range doc.Users {
		if match(&doc.Users[i].User) {
			return i
		}
	}
	return -1
}

func (repo *userRepository) CheckUsernameUniqueness(username, email string, excludedUsers ...user.User) error {
	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = struct{}{}
	}

	return repo.db.read(func(doc *document) error {
		for _, rec := range doc.Users {
			if _, ok := excluded[rec.ID]; ok {
				continue
			}
			if username != "" && rec.Username == username {
				return user.ErrUsernameExists
			}
			if email != "" && rec.Email == email {
				return user.ErrEmailExists
			}
		}
		return nil
	})
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	err := repo.db.write(func(doc *document) error {
		doc.Users = append(doc.Users, newUserRecord(usr))
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(filter user.QueryFilter, orderings []core.Ordering) ([]user.User, error) {
	var users []user.User
	err := repo.db.read(func(doc *document) error {
		users = make([]user.User, 0, len(doc.Users))
		for _, rec := range doc.Users {
			if filter.Match(rec.User) {
				users = append(users, rec.user())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(orderings) == 0 {
		orderings = []core.Ordering{{Field: "created_at"}}
	}
	sortUsers(users, orderings)
	return users, nil
}

func (repo *userRepository) getUser(match func(usr *user.User) bool) (user.User, error) {
	var usr user.User
	err := repo.db.read(func(doc *document) error {
		idx := repo.find(doc, match)
		if idx < 0 {
			return user.ErrNotFound
		}
		usr = doc.Users[idx].user()
		return nil
	})
	return usr, err
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	return repo.getUser(func(usr *user.User) bool { return usr.ID == id })
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(func(usr *user.User) bool { return usr.Email == email })
}

func (repo *userRepository) GetUserByUsernameOrEmail(username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(func(usr *user.User) bool { return usr.Username == username || usr.Email == username })
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	err := repo.db.write(func(doc *document) error {
		idx := repo.find(doc, func(u *user.User) bool { return u.ID == usr.ID })
		if idx < 0 {
			return user.ErrNotFound
		}
		rec := newUserRecord(usr)
		rec.CreatedAt = doc.Users[idx].CreatedAt
		doc.Users[idx] = rec
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

// DeleteUsersByID also deletes the classes the users own. Unknown IDs are ignored.
func (repo *userRepository) DeleteUsersByID(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	toDelete := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		toDelete[id] = struct{}{}
	}

	return repo.db.write(func(doc *document) error {
		kept := make([]userRecord, 0, len(doc.Users))
		for _, rec := range doc.Users {
			if _, ok := toDelete[rec.ID]; !ok {
				kept = append(kept, rec)
			}
		}
		doc.Users = kept

		classes := make([]lesson.Class, 0, len(doc.Classes))
		for _, cls := range doc.Classes {
			if _, ok := toDelete[cls.OwnerID]; !ok {
				classes = append(classes, cls)
			}
		}
		doc.Classes = classes
		return nil
	})
}

// sortUsers sorts by each ordering in turn; unknown fields are ignored.
func sortUsers(users []user.User, orderings []core.Ordering) {
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareUsers(users[i], users[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareUsers(a, b user.User, field string) int {
	switch field {
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "username":
		return strings.Compare(a.Username, b.Username)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "is_active":
		return compareBools(a.IsActive, b.IsActive)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	case "last_login":
		return compareTimes(a.LastLogin, b.LastLogin)
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
