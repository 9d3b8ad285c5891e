// Package testutil holds helpers shared by the test suites.
package testutil

import (
	"io/ioutil"
	"log"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/jsondb"
)

// NewConfig returns a test configuration rooted at a temp directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()

	conf := core.NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.WorkDir = t.TempDir()
	conf.Database.Path = filepath.Join(conf.WorkDir, "database.json")
	conf.SecretKey = "test-secret"
	conf.Server.DisableReqLogs = true
	conf.SetDefaultFromEmail("Darasa <noreply@test.test>")
	return conf
}

// NewLogger returns a logger that discards everything.
func NewLogger() *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), &core.Config{TestMode: true})
}

// NewValidator returns a validator with every domain validator registered,
// along with the translator of its error messages.
func NewValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	if err := user.InitValidators(validate, translator); err != nil {
		t.Fatalf("user.InitValidators() failed: %v", err)
	}
	if err := lesson.InitValidators(validate, translator); err != nil {
		t.Fatalf("lesson.InitValidators() failed: %v", err)
	}
	return validate, translator
}

// PrepareDB opens a fresh database in a temp directory, closed on cleanup.
func PrepareDB(t *testing.T) *jsondb.DB {
	t.Helper()

	db, err := jsondb.Open(filepath.Join(t.TempDir(), "database.json"))
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateClass stores a class owned by ownerID with lessons in the given order.
func CreateClass(t *testing.T, repo lesson.Repository, ownerID, name, code string, lessons ...lesson.Lesson) lesson.Class {
	t.Helper()

	now := time.Now().UTC()
	for i := range lessons {
		if lessons[i].ID == "" {
			lessons[i].ID = uuid.New().String()
		}
		if lessons[i].Status == "" {
			lessons[i].Status = lesson.StatusNotStarted
		}
		if lessons[i].Order == 0 {
			lessons[i].Order = i + 1
		}
		if lessons[i].Duration == 0 {
			lessons[i].Duration = lesson.DefaultDuration
		}
		lessons[i].CreatedAt, lessons[i].UpdatedAt = now, now
	}
	cls, err := repo.CreateClass(lesson.Class{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		Code:      code,
		Lessons:   lessons,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}
