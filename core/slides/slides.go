// Package slides paginates lesson text into bounded slides.
//
// Text is packed greedily: whole paragraphs first, then the words of any
// paragraph that cannot fit a slide on its own. A single word longer than the
// limit is never cut; it gets a slide of its own.
package slides

import (
	"strings"
	"unicode/utf8"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
)

const (
	// DefaultLimit is the slide length used by lesson viewers.
	DefaultLimit = 800

	ParagraphSeparator = "\n\n"
	WordSeparator      = " "
)

// ErrInvalidArgument is returned for a non-positive limit.
var ErrInvalidArgument = errors.New("invalid argument")

// Slide is one page of text along with the separator text that stood before
// it in the source. Separators that would only have produced a blank slide
// are carried by the neighbouring slide instead: leading ones in the first
// slide's Joint, trailing ones in the last slide's Trail.
type Slide struct {
	Text  string
	Joint string
	Trail string
}

// Paginate splits text into slides of at most limit characters.
// The result is never empty, and no slide of a longer deck is blank: a text made
// of separators only yields a single empty slide.
func Paginate(text string, limit int) ([]string, error) {
	split, err := Split(text, limit)
	if err != nil {
		return nil, err
	}
	pages := make([]string, len(split))
	for i, s := range split {
		pages[i] = s.Text
	}
	return pages, nil
}

// Split is Paginate, keeping track of where each slide was cut.
func Split(text string, limit int) ([]Slide, error) {
	if err := vala.BeginValidation().Validate(
		vala.GreaterThan(limit, 0, "limit"),
	).Check(); err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "limit must be positive, got %d", limit)
	}

	if length(text) <= limit {
		return []Slide{{Text: text}}, nil
	}

	out := pack(strings.Split(text, ParagraphSeparator), ParagraphSeparator, limit, func(paragraph string) []Slide {
		return pack(strings.Split(paragraph, WordSeparator), WordSeparator, limit, func(word string) []Slide {
			return []Slide{{Text: word}}
		})
	})
	return dropBlank(out), nil
}

// dropBlank removes slides made of separators only, moving their text onto
// the next slide. The result always holds at least one slide.
func dropBlank(in []Slide) []Slide {
	out := make([]Slide, 0, len(in))
	var pending string
	for i, s := range in {
		if i == 0 {
			s.Joint = ""
		}
		if s.Text == "" {
			pending += s.Joint + s.Trail
			continue
		}
		s.Joint = pending + s.Joint
		pending = ""
		out = append(out, s)
	}
	if len(out) == 0 {
		return []Slide{{Trail: pending}}
	}
	out[len(out)-1].Trail = pending
	return out
}

// Join reassembles the source text from its slides.
func Join(slides []Slide) string {
	var sb strings.Builder
	for _, s := range slides {
		sb.WriteString(s.Joint)
		sb.WriteString(s.Text)
		sb.WriteString(s.Trail)
	}
	return sb.String()
}

// pack greedily fills slides with units joined by sep.
// A unit that cannot fit an empty slide flushes the pending one and is handed
// to overflow, whose slides are emitted in place.
func pack(units []string, sep string, limit int, overflow func(unit string) []Slide) []Slide {
	var (
		out    []Slide
		buf    strings.Builder
		bufLen int
		open   bool
		filled bool // buf holds at least one non-empty unit
	)
	sepLen := length(sep)

	flush := func() {
		if !open {
			return
		}
		if filled {
			out = append(out, Slide{Text: buf.String(), Joint: sep})
		} else {
			// separators only
			out = append(out, Slide{Joint: sep, Trail: buf.String()})
		}
		buf.Reset()
		bufLen, open, filled = 0, false, false
	}

	for _, unit := range units {
		unitLen := length(unit)

		if unitLen > limit {
			flush()
			spill := overflow(unit)
			if len(spill) > 0 {
				spill[0].Joint = sep
			}
			out = append(out, spill...)
			continue
		}

		if open && bufLen+sepLen+unitLen > limit {
			flush()
		}
		if open {
			buf.WriteString(sep)
			bufLen += sepLen
		}
		buf.WriteString(unit)
		bufLen += unitLen
		open = true
		filled = filled || unitLen > 0
	}
	flush()
	return out
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
