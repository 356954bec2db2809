package search

const DefaultPerPage = 100

type Page struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
	Start      int `json:"-"`
	End        int `json:"-"`
}

// Paginate clamps page into [1, TotalPages] and returns the slice bounds for
// it. An empty result still has one (empty) page.
func Paginate(total, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}
	return Page{Page: page, PerPage: perPage, TotalPages: pages, Total: total, Start: start, End: end}
}
