package jsondb

import (
	"sort"

	"github.com/trezcool/darasa/core/lesson"
)

type lessonRepository struct {
	db *DB
}

var _ lesson.Repository = (*lessonRepository)(nil)

func NewLessonRepository(db *DB) lesson.Repository {
	return &lessonRepository{db: db}
}

// cloneClass copies the lessons so callers never share them with the document.
func cloneClass(cls lesson.Class) lesson.Class {
	lessons := make([]lesson.Lesson, len(cls.Lessons))
	copy(lessons, cls.Lessons)
	cls.Lessons = lessons
	return cls
}

func classIndex(doc *document, id string) int {
	for i := range doc.Classes {
		if doc.Classes[i].ID == id {
			return i
		}
	}
	return -1
}

func (repo *lessonRepository) CheckCodeUniqueness(ownerID, code string, excludedIDs ...string) error {
	excluded := make(map[string]struct{}, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = struct{}{}
	}

	return repo.db.read(func(doc *document) error {
		for _, cls := range doc.Classes {
			if _, ok := excluded[cls.ID]; ok {
				continue
			}
			if cls.OwnerID == ownerID && cls.Code == code {
				return lesson.ErrCodeExists
			}
		}
		return nil
	})
}

func (repo *lessonRepository) CreateClass(cls lesson.Class) (lesson.Class, error) {
	if cls.Lessons == nil {
		cls.Lessons = []lesson.Lesson{}
	}
	err := repo.db.write(func(doc *document) error {
		doc.Classes = append(doc.Classes, cloneClass(cls))
		return nil
	})
	if err != nil {
		return lesson.Class{}, err
	}
	return cls, nil
}

func (repo *lessonRepository) QueryClasses(filter lesson.QueryFilter) ([]lesson.Class, error) {
	var classes []lesson.Class
	err := repo.db.read(func(doc *document) error {
		classes = make([]lesson.Class, 0, len(doc.Classes))
		for _, cls := range doc.Classes {
			if filter.Match(cls) {
				classes = append(classes, cloneClass(cls))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// newest first
	sort.SliceStable(classes, func(i, j int) bool {
		return classes[i].CreatedAt.After(classes[j].CreatedAt)
	})
	return classes, nil
}

func (repo *lessonRepository) GetClassByID(id string) (lesson.Class, error) {
	var cls lesson.Class
	err := repo.db.read(func(doc *document) error {
		idx := classIndex(doc, id)
		if idx < 0 {
			return lesson.ErrClassNotFound
		}
		cls = cloneClass(doc.Classes[idx])
		return nil
	})
	return cls, err
}

func (repo *lessonRepository) ModifyClass(id string, fn func(cls *lesson.Class) error) (lesson.Class, error) {
	var modified lesson.Class
	err := repo.db.write(func(doc *document) error {
		idx := classIndex(doc, id)
		if idx < 0 {
			return lesson.ErrClassNotFound
		}
		cls := cloneClass(doc.Classes[idx])
		if err := fn(&cls); err != nil {
			return err
		}
		cls.ID = id // immutable
		doc.Classes[idx] = cls
		modified = cloneClass(cls)
		return nil
	})
	if err != nil {
		return lesson.Class{}, err
	}
	return modified, nil
}

func (repo *lessonRepository) DeleteClass(id string) error {
	return repo.db.write(func(doc *document) error {
		idx := classIndex(doc, id)
		if idx < 0 {
			return lesson.ErrClassNotFound
		}
		doc.Classes = append(doc.Classes[:idx], doc.Classes[idx+1:]...)
		return nil
	})
}
