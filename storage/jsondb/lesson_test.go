package jsondb_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/lesson"
	"github.com/trezcool/darasa/storage/jsondb"
	"github.com/trezcool/darasa/tests"
)

var lessonQueryAll = lesson.QueryFilter{}

func TestLessonRepository_CheckCodeUniqueness(t *testing.T) {
	repo := jsondb.NewLessonRepository(testutil.PrepareDB(t))
	cls := testutil.CreateClass(t, repo, "owner-1", "Biology", "BIO101")

	assert.Equal(t, lesson.ErrCodeExists, repo.CheckCodeUniqueness("owner-1", "BIO101"))
	assert.NoError(t, repo.CheckCodeUniqueness("owner-2", "BIO101"), "codes are unique per owner")
	assert.NoError(t, repo.CheckCodeUniqueness("owner-1", "BIO101", cls.ID))
}

func TestLessonRepository_QueryClasses(t *testing.T) {
	repo := jsondb.NewLessonRepository(testutil.PrepareDB(t))
	bio := testutil.CreateClass(t, repo, "owner-1", "Biology", "BIO101",
		lesson.Lesson{Title: "Cells", Status: lesson.StatusCompleted},
		lesson.Lesson{Title: "Photosynthesis"},
	)
	time.Sleep(time.Millisecond)
	web := testutil.CreateClass(t, repo, "owner-2", "Web Development", "WEB101",
		lesson.Lesson{Title: "Intro to HTML", Status: lesson.StatusInProgress},
	)

	ids := func(classes []lesson.Class) []string {
		out := make([]string, len(classes))
		for i, c := range classes {
			out[i] = c.ID
		}
		return out
	}

	tests := []struct {
		name   string
		filter lesson.QueryFilter
		want   []string
	}{
		{name: "all, newest first", want: []string{web.ID, bio.ID}},
		{name: "owner", filter: lesson.QueryFilter{OwnerID: "owner-1"}, want: []string{bio.ID}},
		{name: "search name", filter: lesson.QueryFilter{Search: "web"}, want: []string{web.ID}},
		{name: "search code", filter: lesson.QueryFilter{Search: "bio1"}, want: []string{bio.ID}},
		{name: "search lesson title", filter: lesson.QueryFilter{Search: "PHOTO"}, want: []string{bio.ID}},
		{name: "status", filter: lesson.QueryFilter{Status: lesson.StatusInProgress}, want: []string{web.ID}},
		{name: "status all", filter: lesson.QueryFilter{Status: lesson.StatusAll}, want: []string{web.ID, bio.ID}},
		{name: "no match", filter: lesson.QueryFilter{Search: "chemistry"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryClasses(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestLessonRepository_ModifyClass(t *testing.T) {
	repo := jsondb.NewLessonRepository(testutil.PrepareDB(t))
	cls := testutil.CreateClass(t, repo, "owner-1", "Biology", "BIO101", lesson.Lesson{Title: "Cells"})

	got, err := repo.ModifyClass(cls.ID, func(c *lesson.Class) error {
		c.Name = "Advanced Biology"
		c.Lessons[0].Title = "Cell Structure"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Biology", got.Name)

	stored, err := repo.GetClassByID(cls.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cell Structure", stored.Lessons[0].Title)

	// a failing modification saves nothing
	errBoom := errors.New("boom")
	_, err = repo.ModifyClass(cls.ID, func(c *lesson.Class) error {
		c.Name = "Nope"
		c.Lessons[0].Title = "Nope"
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	stored, err = repo.GetClassByID(cls.ID)
	require.NoError(t, err)
	assert.Equal(t, "Advanced Biology", stored.Name)
	assert.Equal(t, "Cell Structure", stored.Lessons[0].Title)

	_, err = repo.ModifyClass("nope", func(c *lesson.Class) error { return nil })
	assert.Equal(t, lesson.ErrClassNotFound, err)
}

func TestLessonRepository_DeleteClass(t *testing.T) {
	repo := jsondb.NewLessonRepository(testutil.PrepareDB(t))
	cls := testutil.CreateClass(t, repo, "owner-1", "Biology", "BIO101")

	require.NoError(t, repo.DeleteClass(cls.ID))
	_, err := repo.GetClassByID(cls.ID)
	assert.Equal(t, lesson.ErrClassNotFound, err)
	assert.Equal(t, lesson.ErrClassNotFound, repo.DeleteClass(cls.ID))
}
