package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination represents pagination information for list responses.
type Pagination struct {
	Total      int64 `json:"total"`       // Total number of records
	Page       int64 `json:"page"`        // Current page number (1-based)
	Limit      int64 `json:"limit"`       // Number of records per page
	TotalPages int64 `json:"total_pages"` // Total number of pages
}

// NewPagination creates a new Pagination instance with calculated total pages.
func NewPagination(total, page, limit int64) *Pagination {
	var totalPages int64
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}

	return &Pagination{
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}

// NormalizePage clamps page to >= 1 and limit to 1..MaxPageSize.
func NormalizePage(page, limit int64) (int64, int64) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// Offset returns the number of rows to skip for page.
func Offset(page, limit int64) int {
	return int((page - 1) * limit)
}
