package user_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/storage/jsondb"
	"github.com/trezcool/darasa/tests"
)

type fixture struct {
	repo    user.Repository
	svc     user.Service
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig(t)
	logger := testutil.NewLogger()
	core.ParseEmailTemplates(conf, logger)

	repo := jsondb.NewUserRepository(testutil.PrepareDB(t))
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	return fixture{
		repo:    repo,
		svc:     user.NewService(repo, mailSvc, conf),
		mailSvc: mailSvc,
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)

	usr, err := f.svc.Create(user.NewUser{
		Name:        "Grace Hopper",
		Username:    "grace",
		Email:       "grace@navy.test",
		Password:    "Gr33n-Tea-Leaf",
		Roles:       user.SignupRoles,
		Institution: "Yale",
	})
	require.NoError(t, err)
	_, err = uuid.Parse(usr.ID)
	assert.NoError(t, err, "id is a uuid")
	assert.True(t, usr.IsActive)
	assert.True(t, usr.IsTeacher())
	assert.NoError(t, usr.CheckPassword("Gr33n-Tea-Leaf"))

	stored, err := f.svc.GetByUsernameOrEmail("  GRACE@navy.test ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, stored.ID)
	assert.Equal(t, "Yale", stored.Institution)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "grace@navy.test", sent[0].To[0].Address)
	assert.Equal(t, "welcome", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Welcome to Darasa, Grace Hopper!")

	// no email, no welcome
	_, err = f.svc.Create(user.NewUser{Name: "Anon", Username: "anon", Password: "Gr33n-Tea-Leaf"})
	require.NoError(t, err)
	assert.Len(t, f.mailSvc.SentMessages(), 1)
}

func TestService_CheckUniqueness(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.repo, "Bob", "bob", "bob@test.test", "pwd", nil, true)

	err := f.svc.CheckUniqueness("bob", "")
	require.IsType(t, &core.ValidationError{}, err)
	assert.Equal(t, []core.FieldError{{Field: "username", Error: user.ErrUsernameExists.Error()}}, err.(*core.ValidationError).Fields)

	err = f.svc.CheckUniqueness("robert", "bob@test.test")
	require.IsType(t, &core.ValidationError{}, err)
	assert.Equal(t, "email", err.(*core.ValidationError).Fields[0].Field)

	assert.NoError(t, f.svc.CheckUniqueness("robert", "robert@test.test"))
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.repo, "Bob", "bob", "bob@test.test", "pwd", []string{user.RoleTeacher}, true)

	bio := "Teaches physics."
	updated, err := f.svc.Update(usr.ID, user.UpdateUser{
		Name:     "Robert",
		Username: usr.Username,
		Email:    usr.Email,
		IsActive: core.BoolPtr(false),
		Password: "N3w-Passphrase",
		Bio:      &bio,
	})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{user.RoleTeacher}, updated.Roles, "nil roles are left untouched")
	assert.Equal(t, bio, updated.Bio)
	assert.True(t, updated.UpdatedAt.After(usr.UpdatedAt))

	stored, err := f.svc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("N3w-Passphrase"))

	_, err = f.svc.Update("nope", user.UpdateUser{})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_SetLastLogin(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.repo, "Bob", "bob", "", "pwd", nil, true)
	require.True(t, usr.LastLogin.IsZero())

	usr, err := f.svc.SetLastLogin(usr)
	require.NoError(t, err)

	stored, err := f.svc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.False(t, stored.LastLogin.IsZero())
}

func TestService_PasswordReset(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.repo, "Bob", "bob", "bob@test.test", "old-passphrase", nil, true)
	testutil.CreateUser(t, f.repo, "Ann", "ann", "ann@test.test", "pwd", nil, false)

	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset("nobody@test.test"))
	assert.Equal(t, user.ErrNotFound, f.svc.RequestPasswordReset("ann@test.test"), "inactive users cannot reset")
	assert.Empty(t, f.mailSvc.SentMessages())

	require.NoError(t, f.svc.RequestPasswordReset("BOB@test.test"))
	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "password_reset", sent[0].TemplateName)

	data := sent[0].TemplateData.(map[string]interface{})
	uid, token := data["UID"].(string), data["Token"].(string)
	assert.Contains(t, sent[0].TextContent, "/password-reset/"+uid+"/"+token)
	assert.Contains(t, sent[0].HTMLContent, "Reset my password")

	// tampered
	err := f.svc.ResetPassword(user.ResetUserPassword{UID: uid, Token: token + "x", Password: "N3w-Passphrase"})
	require.IsType(t, &core.ValidationError{}, err)
	err = f.svc.ResetPassword(user.ResetUserPassword{UID: "!!", Token: token, Password: "N3w-Passphrase"})
	require.IsType(t, &core.ValidationError{}, err)

	require.NoError(t, f.svc.ResetPassword(user.ResetUserPassword{UID: uid, Token: token, Password: "N3w-Passphrase"}))
	stored, err := f.svc.GetByID(usr.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("N3w-Passphrase"))

	// a token only works once
	err = f.svc.ResetPassword(user.ResetUserPassword{UID: uid, Token: token, Password: "Other-Passphrase"})
	assert.IsType(t, &core.ValidationError{}, err)
}

func TestService_Latest(t *testing.T) {
	f := setup(t)
	base := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, uname := range []string{"first", "second", "third"} {
		testutil.CreateUser(t, f.repo, uname, uname, "", "pwd", nil, true, base.Add(time.Duration(i)*time.Hour))
	}

	latest, err := f.svc.Latest(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "third", latest[0].Username)
	assert.Equal(t, "second", latest[1].Username)

	all, err := f.svc.Latest(10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.Latest(-1)
	assert.Error(t, err)
}

func TestService_ReportAndExport(t *testing.T) {
	f := setup(t)
	now := time.Date(2021, time.March, 31, 12, 0, 0, 0, time.UTC)
	testutil.CreateUser(t, f.repo, "Ann", "ann", "ann@school.test", "pwd", nil, true, now.AddDate(0, 0, -3))
	testutil.CreateUser(t, f.repo, "Bob", "bob", "bob@school.test", "pwd", nil, true, now.Add(-time.Hour))

	rep, err := f.svc.Report(now)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.TotalUsers)
	assert.Equal(t, 1, rep.Statistics.CreatedToday)
	assert.Equal(t, "ann", rep.Users[0].Username, "oldest first")

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(&buf, now))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], rep.Users[0].ID+",ann,ann@school.test,"))
	assert.True(t, strings.HasSuffix(lines[1], ",3"))
}
