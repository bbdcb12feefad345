package browse

import (
	"fmt"
	"strings"

	"github.com/buyo-io/gpt-oss-mcp/internal/domain"
)

// Document is an immutable snapshot of fetched content, split into lines at
// materialization time. IDs are per-session, monotonic, and never reused;
// re-fetching the same URL produces a new Document with a new ID.
type Document struct {
	ID    int
	Title string
	URL   string
	Lines []string
}

func newDocument(id int, title, url, text string) *Document {
	return &Document{
		ID:    id,
		Title: title,
		URL:   url,
		Lines: strings.Split(text, "\n"),
	}
}

// LineCount returns the number of lines in the document.
func (d *Document) LineCount() int { return len(d.Lines) }

// PageSize selects how many lines a page request wants. The zero value is
// invalid; construct with Lines or ToEnd.
type PageSize struct {
	n     int
	toEnd bool
}

// Lines requests exactly n lines.
func Lines(n int) PageSize { return PageSize{n: n} }

// ToEnd requests the rest of the document, subject to the page ceiling.
func ToEnd() PageSize { return PageSize{toEnd: true} }

// Page slices a window of lines out of the document. loc addresses the first
// line of the window; loc == LineCount() is a valid empty read at EOF.
// maxLines is the hard ceiling a single page may carry.
func (d *Document) Page(loc int, size PageSize, maxLines int) (*domain.Page, error) {
	total := d.LineCount()

	if loc < 0 || loc > total {
		return nil, domain.NewDomainError("document.page", domain.ErrInvalidInput,
			fmt.Sprintf("loc %d out of range [0, %d]", loc, total))
	}

	n := size.n
	if size.toEnd {
		n = maxLines
	}
	if n <= 0 {
		return nil, domain.NewDomainError("document.page", domain.ErrInvalidInput,
			fmt.Sprintf("page size must be positive, got %d", n))
	}
	if n > maxLines {
		n = maxLines
	}

	end := loc + n
	if end > total {
		end = total
	}

	return &domain.Page{
		DocumentID: d.ID,
		Loc:        loc,
		Lines:      d.Lines[loc:end],
		NextLoc:    end,
		EOF:        end == total,
		TotalLines: total,
	}, nil
}
