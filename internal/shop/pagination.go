package shop

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPageSize applies when per_page is absent.
	DefaultPageSize = 50

	// MaxPageSize caps per_page.
	MaxPageSize = 200
)

// Page selects a window of a collection. Number is 1-based.
type Page struct {
	Number int
	Size   int
}

// FirstPage returns page 1 with the default size.
func FirstPage() Page {
	return Page{Number: 1, Size: DefaultPageSize}
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// pageFromRequest reads the page and per_page query parameters.
func pageFromRequest(r *http.Request) (Page, error) {
	page := FirstPage()
	fields := make(map[string]string)
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fields["page"] = "must be a positive integer"
		} else {
			page.Number = n
		}
	}
	if raw := q.Get("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxPageSize {
			fields["per_page"] = "must be between 1 and " + strconv.Itoa(MaxPageSize)
		} else {
			page.Size = n
		}
	}

	if err := validationResult(fields); err != nil {
		return Page{}, err
	}
	return page, nil
}

// setPageHeaders reports the collection size and page count.
// X-Pages is at least 1 so an empty collection still has a first page.
func setPageHeaders(w http.ResponseWriter, p Page, total int) {
	pages := (total + p.Size - 1) / p.Size
	if pages < 1 {
		pages = 1
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	w.Header().Set("X-Pages", strconv.Itoa(pages))
}
