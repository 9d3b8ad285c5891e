package lesson

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/slides"
)

var (
	// errors
	ErrClassNotFound  = errors.New("class not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrCodeExists     = errors.New("class code already exists")
)

type (
	Repository interface {
		// CheckCodeUniqueness fails with ErrCodeExists when ownerID already has a class with code.
		CheckCodeUniqueness(ownerID, code string, excludedIDs ...string) error
		CreateClass(cls Class) (Class, error)
		// QueryClasses returns the classes matching filter, newest first.
		QueryClasses(filter QueryFilter) ([]Class, error)
		GetClassByID(id string) (Class, error)
		// ModifyClass applies fn to the stored class and saves the result atomically.
		// Nothing is saved when fn fails.
		ModifyClass(id string, fn func(cls *Class) error) (Class, error)
		DeleteClass(id string) error
	}

	Service interface {
		CreateClass(ownerID string, nc NewClass) (Class, error)
		QueryClasses(filter QueryFilter) ([]Class, error)
		GetClass(id string) (Class, error)
		UpdateClass(id string, uc UpdateClass) (Class, error)
		DeleteClass(id string) error

		CreateLesson(classID string, nl NewLesson) (Lesson, error)
		GetLesson(classID, lessonID string) (Lesson, error)
		UpdateLesson(classID, lessonID string, ul UpdateLesson) (Lesson, error)
		SetLessonStatus(classID, lessonID, status string) (Lesson, error)
		ToggleLessonStatus(classID, lessonID string) (Lesson, error)
		DeleteLesson(classID, lessonID string) error

		Stats(ownerID string) (Stats, error)
		Slides(classID, lessonID string, limit, index int) (slides.Deck, error)
		Import(ownerID, filename string, size int64, r io.Reader) (Class, error)
	}

	service struct {
		repo       Repository
		slideLimit int
		nowFunc    func() time.Time // mockable
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, conf *core.Config) Service {
	limit := conf.Lessons.SlideMaxLength
	if limit <= 0 {
		limit = slides.DefaultLimit
	}
	return &service{
		repo:       repo,
		slideLimit: limit,
		nowFunc:    time.Now,
	}
}

func (svc *service) now() time.Time {
	return svc.nowFunc().UTC()
}

func (svc *service) checkCode(ownerID, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckCodeUniqueness(ownerID, code, excludedIDs...); err != nil {
		if err == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) CreateClass(ownerID string, nc NewClass) (Class, error) {
	if err := svc.checkCode(ownerID, nc.Code); err != nil {
		return Class{}, err
	}

	now := svc.now()
	return svc.repo.CreateClass(Class{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        nc.Name,
		Code:        nc.Code,
		Description: nc.Description,
		Lessons:     []Lesson{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) QueryClasses(filter QueryFilter) ([]Class, error) {
	filter.Clean()
	return svc.repo.QueryClasses(filter)
}

func (svc *service) GetClass(id string) (Class, error) {
	return svc.repo.GetClassByID(id)
}

func (svc *service) UpdateClass(id string, uc UpdateClass) (Class, error) {
	orig, err := svc.repo.GetClassByID(id)
	if err != nil {
		return Class{}, err
	}
	if uc.Code != nil && *uc.Code != orig.Code {
		if err := svc.checkCode(orig.OwnerID, *uc.Code, id); err != nil {
			return Class{}, err
		}
	}

	return svc.repo.ModifyClass(id, func(cls *Class) error {
		if uc.Name != nil {
			cls.Name = *uc.Name
		}
		if uc.Code != nil {
			cls.Code = *uc.Code
		}
		if uc.Description != nil {
			cls.Description = *uc.Description
		}
		cls.UpdatedAt = svc.now()
		return nil
	})
}

func (svc *service) DeleteClass(id string) error {
	return svc.repo.DeleteClass(id)
}

// CreateLesson appends a not-started lesson to the class, last unless an Order is given.
func (svc *service) CreateLesson(classID string, nl NewLesson) (Lesson, error) {
	var created Lesson
	_, err := svc.repo.ModifyClass(classID, func(cls *Class) error {
		now := svc.now()
		created = Lesson{
			ID:        uuid.New().String(),
			Title:     nl.Title,
			Content:   nl.Content,
			Duration:  nl.Duration,
			Order:     nl.Order,
			Status:    StatusNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if created.Duration <= 0 {
			created.Duration = DefaultDuration
		}
		if created.Order <= 0 {
			created.Order = len(cls.Lessons) + 1
		}
		cls.Lessons = append(cls.Lessons, created)
		cls.sortLessons()
		cls.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	return created, nil
}

func (svc *service) GetLesson(classID, lessonID string) (Lesson, error) {
	cls, err := svc.repo.GetClassByID(classID)
	if err != nil {
		return Lesson{}, err
	}
	idx := cls.lessonIndex(lessonID)
	if idx < 0 {
		return Lesson{}, ErrLessonNotFound
	}
	return cls.Lessons[idx], nil
}

// modifyLesson applies fn to one lesson of the class and saves the class.
func (svc *service) modifyLesson(classID, lessonID string, fn func(l *Lesson) error) (Lesson, error) {
	var modified Lesson
	_, err := svc.repo.ModifyClass(classID, func(cls *Class) error {
		idx := cls.lessonIndex(lessonID)
		if idx < 0 {
			return ErrLessonNotFound
		}
		l := cls.Lessons[idx]
		if err := fn(&l); err != nil {
			return err
		}
		l.UpdatedAt = svc.now()
		cls.Lessons[idx] = l
		cls.sortLessons()
		cls.UpdatedAt = l.UpdatedAt
		modified = l
		return nil
	})
	if err != nil {
		return Lesson{}, err
	}
	return modified, nil
}

func (svc *service) UpdateLesson(classID, lessonID string, ul UpdateLesson) (Lesson, error) {
	return svc.modifyLesson(classID, lessonID, func(l *Lesson) error {
		if ul.Title != nil {
			l.Title = *ul.Title
		}
		if ul.Content != nil {
			l.Content = *ul.Content
		}
		if ul.Duration != nil {
			l.Duration = *ul.Duration
		}
		if ul.Order != nil {
			l.Order = *ul.Order
		}
		if ul.Status != nil {
			l.Status = *ul.Status
		}
		return nil
	})
}

func (svc *service) SetLessonStatus(classID, lessonID, status string) (Lesson, error) {
	if !IsValidStatus(status) {
		return Lesson{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: lessonStatusText})
	}
	return svc.modifyLesson(classID, lessonID, func(l *Lesson) error {
		l.Status = status
		return nil
	})
}

// ToggleLessonStatus marks a completed lesson as not started and any other as completed.
func (svc *service) ToggleLessonStatus(classID, lessonID string) (Lesson, error) {
	return svc.modifyLesson(classID, lessonID, func(l *Lesson) error {
		if l.Status == StatusCompleted {
			l.Status = StatusNotStarted
		} else {
			l.Status = StatusCompleted
		}
		return nil
	})
}

func (svc *service) DeleteLesson(classID, lessonID string) error {
	_, err := svc.repo.ModifyClass(classID, func(cls *Class) error {
		idx := cls.lessonIndex(lessonID)
		if idx < 0 {
			return ErrLessonNotFound
		}
		cls.Lessons = append(cls.Lessons[:idx], cls.Lessons[idx+1:]...)
		cls.UpdatedAt = svc.now()
		return nil
	})
	return err
}

// Stats counts the classes of ownerID; an empty ownerID counts every class.
func (svc *service) Stats(ownerID string) (Stats, error) {
	classes, err := svc.repo.QueryClasses(QueryFilter{OwnerID: ownerID})
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	st.TotalClasses = len(classes)
	for i := range classes {
		st.TotalLessons += len(classes[i].Lessons)
		st.CompletedLessons += classes[i].CompletedLessons()
	}
	return st, nil
}

// Slides paginates the lesson content and opens the deck at index.
// A zero limit uses the configured slide length.
func (svc *service) Slides(classID, lessonID string, limit, index int) (slides.Deck, error) {
	l, err := svc.GetLesson(classID, lessonID)
	if err != nil {
		return slides.Deck{}, err
	}
	if limit == 0 {
		limit = svc.slideLimit
	}
	pages, err := slides.Paginate(l.Content, limit)
	if err != nil {
		return slides.Deck{}, err
	}
	return slides.NewDeck(pages, index), nil
}
