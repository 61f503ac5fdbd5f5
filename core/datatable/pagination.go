package datatable

// Pagination describes paging controlled by the caller.
// The Table only renders page controls and reports page change intents through OnChange;
// callers update it with SetPagination once the new page is loaded.
type Pagination struct {
	Page            int
	PageSize        int
	Total           int
	PageSizeOptions []int
	OnChange        func(page, pageSize int)
}

// PaginationView is the rendered state of the page controls.
type PaginationView struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"page_size"`
	Total           int   `json:"total"`
	Pages           int   `json:"pages"`
	From            int   `json:"from"` // 1-based index of the first record on the page, 0 when empty
	To              int   `json:"to"`
	HasPrev         bool  `json:"has_prev"`
	HasNext         bool  `json:"has_next"`
	PageSizeOptions []int `json:"page_size_options,omitempty"`
}

// pages returns the number of pages, at least 1.
func (p Pagination) pages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func (p Pagination) view() *PaginationView {
	page := p.Page
	if page < 1 {
		page = 1
	}
	pv := &PaginationView{
		Page:            page,
		PageSize:        p.PageSize,
		Total:           p.Total,
		Pages:           p.pages(),
		PageSizeOptions: append([]int(nil), p.PageSizeOptions...),
	}
	if p.Total > 0 && p.PageSize > 0 {
		pv.From = (page-1)*p.PageSize + 1
		pv.To = page * p.PageSize
		if pv.To > p.Total {
			pv.To = p.Total
		}
		if pv.From > p.Total {
			pv.From, pv.To = 0, 0
		}
	}
	pv.HasPrev = page > 1
	pv.HasNext = page < pv.Pages
	return pv
}

func (p Pagination) validate(page, pageSize int) error {
	if page < 1 || pageSize < 1 {
		return ErrInvalidPage
	}
	if p.Total > 0 {
		pages := (p.Total + pageSize - 1) / pageSize
		if page > pages {
			return ErrInvalidPage
		}
	}
	return nil
}
