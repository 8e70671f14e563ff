package pagination

const (
	// PageSize is the fixed number of orders returned per page.
	PageSize = 20
)

// Params holds page inputs from controllers or services.
type Params struct {
	Page int
}

// NormalizePage clamps a page number to 1..n.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Page describes one page of a sliced result set.
type Page struct {
	Number     int
	TotalPages int
	Start      int
	End        int
}

// Slice computes the bounds for the requested page over a list of the given
// length. Bounds are safe to use directly as list[start:end].
func Slice(length, page int) Page {
	page = NormalizePage(page)

	totalPages := (length + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * PageSize
	if start > length {
		start = length
	}
	end := start + PageSize
	if end > length {
		end = length
	}

	return Page{
		Number:     page,
		TotalPages: totalPages,
		Start:      start,
		End:        end,
	}
}
