package slides

import "fmt"

// Cursor tracks the slide being viewed. Moves outside [0, count-1] are ignored.
type Cursor struct {
	index int
	count int
}

func NewCursor(count int) *Cursor {
	if count < 1 {
		count = 1 // a deck always has at least one slide
	}
	return &Cursor{count: count}
}

func (c *Cursor) Index() int { return c.index }
func (c *Cursor) Count() int { return c.count }

func (c *Cursor) Next() bool { return c.GoTo(c.index + 1) }
func (c *Cursor) Prev() bool { return c.GoTo(c.index - 1) }

// GoTo moves to slide i and reports whether the move happened.
func (c *Cursor) GoTo(i int) bool {
	if i < 0 || i >= c.count {
		return false
	}
	c.index = i
	return true
}

// Position is the human counter, e.g. "2 / 5".
func (c *Cursor) Position() string {
	return fmt.Sprintf("%d / %d", c.index+1, c.count)
}

// Dots has one indicator per slide; only the current one is set.
func (c *Cursor) Dots() []bool {
	dots := make([]bool, c.count)
	dots[c.index] = true
	return dots
}

// Deck is a paginated lesson as served to viewers.
type Deck struct {
	Slides   []string `json:"slides"`
	Index    int      `json:"index"`
	Count    int      `json:"count"`
	Position string   `json:"position"`
	Dots     []bool   `json:"dots"`
	Current  string   `json:"current"`
}

// NewDeck builds a Deck opened at index; an out-of-range index opens the first slide.
func NewDeck(pages []string, index int) Deck {
	if len(pages) == 0 {
		pages = []string{""}
	}
	cur := NewCursor(len(pages))
	cur.GoTo(index)
	return Deck{
		Slides:   pages,
		Index:    cur.Index(),
		Count:    cur.Count(),
		Position: cur.Position(),
		Dots:     cur.Dots(),
		Current:  pages[cur.Index()],
	}
}
