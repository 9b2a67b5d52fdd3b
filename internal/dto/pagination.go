package dto

// OffsetPage describes one page of an offset-paginated listing.
type OffsetPage struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewOffsetPage computes the derived fields from page, limit and total.
func NewOffsetPage(page, limit int, total int64) OffsetPage {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return OffsetPage{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// CursorPage describes one page of a keyset listing ordered by id DESC.
// NextLastID is the cursor for the following request; HasMore is true when
// the page came back full.
type CursorPage struct {
	NextLastID *uint `json:"nextLastId"`
	HasMore    bool  `json:"hasMore"`
	Limit      int   `json:"limit"`
	Count      int   `json:"count"`
	TotalCount int64 `json:"totalCount"`
}
