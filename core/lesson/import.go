package lesson

import (
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const importCodeLen = 6

var ErrUnsupportedFormat = errors.New("unsupported file format")

// importer describes how one family of documents becomes a class.
type importer struct {
	kind        string // human name of the format
	titlePrefix string
	duration    int
	body        func(filename string, size int64, importedOn string) string
}

var importers = map[string]importer{
	".pdf": {
		kind:        "PDF",
		titlePrefix: "PDF Content",
		duration:    60,
		body: func(filename string, size int64, importedOn string) string {
			return fmt.Sprintf("This lesson was imported from a PDF file: %s\n\nFile size: %s\nImported on: %s",
				filename, formatKB(size), importedOn)
		},
	},
	".doc":  wordImporter,
	".docx": wordImporter,
	".ppt":  powerPointImporter,
	".pptx": powerPointImporter,
}

var (
	wordImporter = importer{
		kind:        "Word document",
		titlePrefix: "Word Document",
		duration:    45,
		body: func(filename string, _ int64, _ string) string {
			return fmt.Sprintf("Content from %s\n\nFile imported successfully.", filename)
		},
	}
	powerPointImporter = importer{
		kind:        "PowerPoint",
		titlePrefix: "PowerPoint",
		duration:    30,
		body: func(filename string, size int64, importedOn string) string {
			return fmt.Sprintf("This lesson was imported from a PowerPoint presentation: %s\n\nFile size: %s\nImported on: %s\n\n"+
				"Note: Slide content extraction requires additional processing.", filename, formatKB(size), importedOn)
		},
	}
)

// SupportedExtension reports whether filename can be imported.
func SupportedExtension(filename string) bool {
	_, ok := importers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Import creates a class named after the file with a single placeholder lesson.
// Documents are not parsed. A negative size is measured by draining r.
func (svc *service) Import(ownerID, filename string, size int64, r io.Reader) (Class, error) {
	filename = filepath.Base(core.CleanString(filename))
	ext := filepath.Ext(filename)
	imp, ok := importers[strings.ToLower(ext)]
	if !ok {
		return Class{}, errors.Wrap(ErrUnsupportedFormat, filename)
	}

	name := strings.TrimSuffix(filename, ext)
	code := importCode(name)
	if name == "" || code == "" {
		return Class{}, core.NewValidationError(nil, core.FieldError{Field: "files", Error: "invalid file name: " + filename})
	}

	if size < 0 && r != nil {
		n, err := io.Copy(ioutil.Discard, r)
		if err != nil {
			return Class{}, errors.Wrap(err, "reading "+filename)
		}
		size = n
	}

	cls, err := svc.CreateClass(ownerID, NewClass{
		Name:        name,
		Code:        code,
		Description: fmt.Sprintf("Imported from %s: %s", imp.kind, filename),
	})
	if err != nil {
		return Class{}, err
	}

	importedOn := svc.now().Format("2006-01-02 15:04:05 MST")
	if _, err := svc.CreateLesson(cls.ID, NewLesson{
		Title:    fmt.Sprintf("%s: %s", imp.titlePrefix, filename),
		Content:  imp.body(filename, size, importedOn),
		Duration: imp.duration,
		Order:    1,
	}); err != nil {
		if delErr := svc.repo.DeleteClass(cls.ID); delErr != nil {
			return Class{}, errors.Wrapf(err, "removing class %s: %v", cls.ID, delErr)
		}
		return Class{}, err
	}
	return svc.repo.GetClassByID(cls.ID)
}

// importCode is the upper-cased first letters, digits or underscores of name.
func importCode(name string) string {
	code := make([]rune, 0, importCodeLen)
	for _, r := range name {
		if len(code) == importCodeLen {
			break
		}
		if r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
			code = append(code, r)
		}
	}
	return strings.ToUpper(string(code))
}

func formatKB(size int64) string {
	return fmt.Sprintf("%.2f KB", float64(size)/1024)
}
