package main

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/slides"
)

// slides prints every slide of the file under its "i / n" counter.
func (cli *commandLine) slides(path string, limit int) error {
	if limit == 0 {
		limit = cli.slideLimit
	}
	if limit < 0 {
		return core.NewArgumentError(fmt.Sprintf("limit must be positive, got %d", limit))
	}

	text, err := ioutil.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading "+path)
	}
	pages, err := slides.Paginate(string(text), limit)
	if err != nil {
		return err
	}

	cur := slides.NewCursor(len(pages))
	for {
		fmt.Fprintf(cli.out, "--- %s ---\n%s\n", cur.Position(), pages[cur.Index()])
		if !cur.Next() {
			return nil
		}
	}
}
