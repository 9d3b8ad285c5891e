package jsondb_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/jsondb"
	"github.com/trezcool/darasa/tests"
)

func setupUsers(t *testing.T) (user.Repository, []user.User) {
	db := testutil.PrepareDB(t)
	repo := jsondb.NewUserRepository(db)

	base := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)
	users := []user.User{
		testutil.CreateUser(t, repo, "Zoe Admin", "zoe", "zoe@school.test", "pwd", []string{user.RoleAdminOwner}, true, base),
		testutil.CreateUser(t, repo, "Bob Teacher", "bob", "bob@school.test", "pwd", []string{user.RoleTeacher}, true, base.Add(time.Hour)),
		testutil.CreateUser(t, repo, "Ann Student", "ann", "ann@mail.test", "pwd", []string{user.RoleStudent}, false, base.Add(2*time.Hour)),
	}
	return repo, users
}

func usernames(users []user.User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Username
	}
	return names
}

func TestUserRepository_CheckUsernameUniqueness(t *testing.T) {
	repo, users := setupUsers(t)

	assert.Equal(t, user.ErrUsernameExists, repo.CheckUsernameUniqueness("bob", ""))
	assert.Equal(t, user.ErrEmailExists, repo.CheckUsernameUniqueness("", "ann@mail.test"))
	assert.NoError(t, repo.CheckUsernameUniqueness("bob", "bob@school.test", users[1]))
	assert.NoError(t, repo.CheckUsernameUniqueness("new", "new@school.test"))
	assert.NoError(t, repo.CheckUsernameUniqueness("", ""), "blank values never clash")
}

func TestUserRepository_QueryUsers(t *testing.T) {
	repo, _ := setupUsers(t)

	tests := []struct {
		name      string
		filter    user.QueryFilter
		orderings []core.Ordering
		want      []string
	}{
		{name: "all, newest first", want: []string{"ann", "bob", "zoe"}},
		{name: "search name", filter: user.QueryFilter{Search: "TEACH"}, want: []string{"bob"}},
		{name: "search email", filter: user.QueryFilter{Search: "school"}, want: []string{"bob", "zoe"}},
		{name: "role prefix", filter: user.QueryFilter{Roles: []string{user.RoleAdmin}}, want: []string{"zoe"}},
		{name: "inactive", filter: user.QueryFilter{IsActive: core.BoolPtr(false)}, want: []string{"ann"}},
		{
			name:   "created range",
			filter: user.QueryFilter{CreatedFrom: time.Date(2021, time.March, 1, 12, 30, 0, 0, time.UTC)},
			want:   []string{"ann", "bob"},
		},
		{name: "by name asc", orderings: []core.Ordering{{Field: "name", Ascending: true}}, want: []string{"ann", "bob", "zoe"}},
		{
			name:      "by activity then username",
			orderings: []core.Ordering{{Field: "is_active"}, {Field: "username", Ascending: true}},
			want:      []string{"bob", "zoe", "ann"},
		},
		{name: "unknown field ignored", orderings: []core.Ordering{{Field: "lol"}}, want: []string{"zoe", "bob", "ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryUsers(tt.filter, tt.orderings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(got))
		})
	}
}

func TestUserRepository_Get(t *testing.T) {
	repo, users := setupUsers(t)

	got, err := repo.GetUserByID(users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "zoe", got.Username)

	got, err = repo.GetUserByEmail("bob@school.test")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	got, err = repo.GetUserByUsernameOrEmail("ann")
	require.NoError(t, err)
	assert.Equal(t, users[2].ID, got.ID)

	got, err = repo.GetUserByUsernameOrEmail("ann@mail.test")
	require.NoError(t, err)
	assert.Equal(t, users[2].ID, got.ID)

	_, err = repo.GetUserByID("nope")
	assert.Equal(t, user.ErrNotFound, err)
	_, err = repo.GetUserByEmail("")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_UpdateUser(t *testing.T) {
	repo, users := setupUsers(t)

	usr := users[1]
	usr.Name = "Robert"
	usr.Roles = []string{user.RoleTeacher, user.RoleAdmin}
	usr.CreatedAt = time.Now() // ignored
	_, err := repo.UpdateUser(usr)
	require.NoError(t, err)

	got, err := repo.GetUserByID(usr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Robert", got.Name)
	assert.Equal(t, usr.Roles, got.Roles)
	assert.True(t, users[1].CreatedAt.Equal(got.CreatedAt))

	_, err = repo.UpdateUser(user.User{ID: "nope"})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_DeleteUsersByID(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := jsondb.NewUserRepository(db)
	lessonRepo := jsondb.NewLessonRepository(db)

	usr := testutil.CreateUser(t, repo, "Bob", "bob", "", "pwd", nil, true)
	other := testutil.CreateUser(t, repo, "Ann", "ann", "", "pwd", nil, true)
	testutil.CreateClass(t, lessonRepo, usr.ID, "Biology", "BIO101")
	kept := testutil.CreateClass(t, lessonRepo, other.ID, "Physics", "PHY101")

	require.NoError(t, repo.DeleteUsersByID(usr.ID, "unknown"))

	all, err := repo.QueryUsers(user.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann"}, usernames(all))

	classes, err := lessonRepo.QueryClasses(lessonQueryAll)
	require.NoError(t, err)
	require.Len(t, classes, 1, "classes of deleted users are deleted")
	assert.Equal(t, kept.ID, classes[0].ID)
}
