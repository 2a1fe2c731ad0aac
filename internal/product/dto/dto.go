package dto

type ProductFilters struct {
	StoreID     string
	CategoryID  *int64
	SearchQuery string // name/description ILIKE
	InStock     bool
	Page        int
	PageSize    int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	SearchLimit     = 20
)

// Normalize clamps paging to sane values.
func (f *ProductFilters) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
