package lesson

import (
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Lesson statuses
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	// StatusAll disables the status filter.
	StatusAll = "all"

	DefaultDuration = 60 // minutes
)

var Statuses = []string{StatusNotStarted, StatusInProgress, StatusCompleted}

type Lesson struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Duration  int       `json:"duration"` // minutes
	Order     int       `json:"order"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Class struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Lessons     []Lesson  `json:"lessons"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

func (c *Class) CompletedLessons() int {
	var n int
	for _, l := range c.Lessons {
		if l.Status == StatusCompleted {
			n++
		}
	}
	return n
}

// Progress is the share of completed lessons, in percent.
func (c *Class) Progress() float64 {
	if len(c.Lessons) == 0 {
		return 0
	}
	return float64(c.CompletedLessons()) / float64(len(c.Lessons)) * 100
}

func (c *Class) lessonIndex(id string) int {
	for i, l := range c.Lessons {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// sortLessons orders lessons by Order; equal orders keep their insertion order.
func (c *Class) sortLessons() {
	sort.SliceStable(c.Lessons, func(i, j int) bool {
		return c.Lessons[i].Order < c.Lessons[j].Order
	})
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,max=20,alphanum_"`
	Description string `json:"description"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateClass defines what information may be provided to modify an existing Class.
type UpdateClass struct {
	Name        *string `json:"name" validate:"omitempty,notblank"`
	Code        *string `json:"code" validate:"omitempty,notblank,max=20,alphanum_"`
	Description *string `json:"description"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	if uc.Name != nil {
		*uc.Name = core.CleanString(*uc.Name)
	}
	if uc.Code != nil {
		*uc.Code = strings.ToUpper(core.CleanString(*uc.Code))
	}
	if uc.Description != nil {
		*uc.Description = core.CleanString(*uc.Description)
	}
	return validate.Struct(uc)
}

// NewLesson contains information needed to add a Lesson to a Class.
// A zero Duration or Order takes its default.
type NewLesson struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Duration int    `json:"duration" validate:"gte=0"`
	Order    int    `json:"order" validate:"gte=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Content = core.CleanString(nl.Content)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title    *string `json:"title" validate:"omitempty,notblank"`
	Content  *string `json:"content" validate:"omitempty,notblank"`
	Duration *int    `json:"duration" validate:"omitempty,gt=0"`
	Order    *int    `json:"order" validate:"omitempty,gt=0"`
	Status   *string `json:"status" validate:"omitempty,lessonstatus"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	if ul.Title != nil {
		*ul.Title = core.CleanString(*ul.Title)
	}
	if ul.Content != nil {
		*ul.Content = core.CleanString(*ul.Content)
	}
	return validate.Struct(ul)
}

type LessonStatus struct {
	Status string `json:"status" validate:"required,lessonstatus"`
}

func (ls *LessonStatus) Validate(validate *validator.Validate) error {
	ls.Status = core.CleanString(ls.Status, true /* lower */)
	return validate.Struct(ls)
}

type QueryFilter struct {
	OwnerID string `query:"-"` // empty matches every owner
	Search  string `query:"search"`
	Status  string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	if qf.Status == StatusAll {
		qf.Status = ""
	}
}

// Match reports whether cls satisfies the filter.
// Search does a case-insensitive match on the class name, its code or the
// title of one of its lessons; Status keeps classes having at least one
// lesson with that status.
func (qf *QueryFilter) Match(cls Class) bool {
	if qf.OwnerID != "" && cls.OwnerID != qf.OwnerID {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		found := strings.Contains(strings.ToLower(cls.Name), s) || strings.Contains(strings.ToLower(cls.Code), s)
		for i := 0; !found && i < len(cls.Lessons); i++ {
			found = strings.Contains(strings.ToLower(cls.Lessons[i].Title), s)
		}
		if !found {
			return false
		}
	}
	if qf.Status != "" && qf.Status != StatusAll {
		var found bool
		for _, l := range cls.Lessons {
			if l.Status == qf.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type Stats struct {
	TotalClasses     int `json:"total_classes"`
	TotalLessons     int `json:"total_lessons"`
	CompletedLessons int `json:"completed_lessons"`
}
