package utils

// Page is one entry of the pagination bar. Number 0 is an ellipsis.
type Page struct {
	Number int
	IsLink bool
	URL    string
}

type Pagination struct {
	CurrentPage int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevURL     string
	NextURL     string
	Pages       []Page
}

// Number of pages shown on each side of the current page.
const paginationWindow = 2

// GeneratePagination builds the bar for the pagination partial: the first and
// last page, a window around the current page and ellipses for the gaps.
// It returns nil when there is nothing to page through.
func GeneratePagination(currentPage, totalPages int, pageURL func(page int) string) *Pagination {
	if totalPages <= 1 {
		return nil
	}
	currentPage = min(max(currentPage, 1), totalPages)

	link := func(n int) Page {
		return Page{Number: n, IsLink: n != currentPage, URL: pageURL(n)}
	}

	pages := []Page{link(1)}
	if currentPage > paginationWindow+2 {
		pages = append(pages, Page{})
	}
	start := max(2, currentPage-paginationWindow)
	end := min(totalPages-1, currentPage+paginationWindow)
	for i := start; i <= end; i++ {
		pages = append(pages, link(i))
	}
	if currentPage < totalPages-(paginationWindow+1) {
		pages = append(pages, Page{})
	}
	pages = append(pages, link(totalPages))

	p := &Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		Pages:       pages,
	}
	if p.HasPrev {
		p.PrevURL = pageURL(currentPage - 1)
	}
	if p.HasNext {
		p.NextURL = pageURL(currentPage + 1)
	}
	return p
}
