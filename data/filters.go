package data

import (
	"math"
	"strings"

	"github.com/emzola/circulation/internal/validator"
)

// DefaultPageSize is the number of records per page when the client asks
// for none.
const DefaultPageSize = 5

// Filters holds the paging and sorting options of a list request.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafeList []string
}

// SortColumn returns the column named by Sort without its "-" prefix. It
// panics when Sort is not in SortSafeList, which only happens if a caller
// skipped ValidateFilters.
func (f Filters) SortColumn() string {
	for _, safeValue := range f.SortSafeList {
		if f.Sort == safeValue {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	panic("unsafe sort parameter: " + f.Sort)
}

// SortDescending reports whether Sort asks for descending order.
func (f Filters) SortDescending() bool {
	return strings.HasPrefix(f.Sort, "-")
}

// SortDirection returns "ASC" or "DESC" depending on the prefix of Sort.
func (f Filters) SortDirection() string {
	if f.SortDescending() {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) Limit() int {
	return f.PageSize
}

func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validator.PermittedValue(f.Sort, f.SortSafeList...), "sort", "invalid sort value")
}

// Metadata holds pagination details returned alongside a list.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// CalculateMetadata computes pagination metadata. An empty result set
// yields the zero Metadata.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

// SortSafeList expands a list of sortable columns into the values a client
// may send, ascending and descending.
func SortSafeList(columns ...string) []string {
	list := make([]string, 0, len(columns)*2)
	for _, c := range columns {
		list = append(list, c, "-"+c)
	}
	return list
}
