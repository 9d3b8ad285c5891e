package lesson

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func newValidator(t *testing.T) *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	require.NoError(t, InitValidators(validate, translator))
	return validate
}

func failedFields(err error) []string {
	var out []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			out = append(out, fe.Field())
		}
	}
	return out
}

func TestNewClass_Validate(t *testing.T) {
	validate := newValidator(t)

	nc := NewClass{Name: "  Web Development ", Code: " web101 ", Description: " basics "}
	require.NoError(t, nc.Validate(validate))
	assert.Equal(t, NewClass{Name: "Web Development", Code: "WEB101", Description: "basics"}, nc)

	nc = NewClass{Name: "  ", Code: "WEB-101"}
	assert.Equal(t, []string{"name", "code"}, failedFields(nc.Validate(validate)))
}

func TestNewLesson_Validate(t *testing.T) {
	validate := newValidator(t)

	nl := NewLesson{Title: " Intro ", Content: " HTML is a markup language. "}
	require.NoError(t, nl.Validate(validate))
	assert.Equal(t, "Intro", nl.Title)
	assert.Equal(t, "HTML is a markup language.", nl.Content)

	nl = NewLesson{Duration: -1, Order: -2}
	assert.Equal(t, []string{"title", "content", "duration", "order"}, failedFields(nl.Validate(validate)))
}

func TestUpdateLesson_Validate(t *testing.T) {
	validate := newValidator(t)

	blank, zero, bad, good := " ", 0, "paused", StatusInProgress
	ul := UpdateLesson{Title: &blank, Duration: &zero, Status: &bad}
	assert.Equal(t, []string{"title", "duration", "status"}, failedFields(ul.Validate(validate)))

	ul = UpdateLesson{Status: &good}
	assert.NoError(t, ul.Validate(validate))
	assert.NoError(t, (&UpdateLesson{}).Validate(validate))

	assert.Equal(t, []string{"status"}, failedFields(validate.Struct(LessonStatus{Status: "done"})))
	assert.NoError(t, validate.Struct(LessonStatus{Status: StatusCompleted}))
}

func TestClass_Progress(t *testing.T) {
	cls := Class{}
	assert.Equal(t, 0.0, cls.Progress())

	cls.Lessons = []Lesson{{Status: StatusCompleted}, {Status: StatusInProgress}, {Status: StatusNotStarted}, {Status: StatusCompleted}}
	assert.Equal(t, 2, cls.CompletedLessons())
	assert.Equal(t, 50.0, cls.Progress())
}

func TestImportCode(t *testing.T) {
	assert.Equal(t, "BIOLOG", importCode("biology notes"))
	assert.Equal(t, "AB", importCode("ab"))
	assert.Equal(t, "ÉCOLEP", importCode("écolepremière"))
	assert.Equal(t, "", importCode("  "))
}

func TestSupportedExtension(t *testing.T) {
	for _, f := range []string{"a.pdf", "a.PDF", "a.doc", "a.docx", "a.ppt", "a.pptx"} {
		assert.True(t, SupportedExtension(f), f)
	}
	for _, f := range []string{"a.txt", "pdf", "a.pdf.zip", ""} {
		assert.False(t, SupportedExtension(f), f)
	}
}
