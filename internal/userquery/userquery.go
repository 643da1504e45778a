// Package userquery derives the visible page of a user listing from the full
// collection and a set of filter, sort and pagination controls.
package userquery

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

// DefaultPageSize is used when controls carry a non-positive page size.
const DefaultPageSize = 10

// Direction orders sorted output.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort selects the field and direction used to order filtered rows. A zero
// Sort keeps the original order.
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Controls are the ephemeral parameters of a single Derive call.
type Controls struct {
	RoleFilter string `json:"roleFilter"`
	SearchText string `json:"searchText"`
	Sort       Sort   `json:"sort"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

// DefaultControls shows every user, unsorted, on the first page.
func DefaultControls() Controls {
	return Controls{RoleFilter: models.RoleFilterAll, Page: 1, PageSize: DefaultPageSize}
}

// WithRoleFilter returns c filtered by role and back on the first page.
func (c Controls) WithRoleFilter(role string) Controls {
	c.RoleFilter = role
	c.Page = 1
	return c
}

// WithSearch returns c with new search text and back on the first page.
func (c Controls) WithSearch(text string) Controls {
	c.SearchText = text
	c.Page = 1
	return c
}

// WithPageSize returns c with a new page size and back on the first page.
func (c Controls) WithPageSize(size int) Controls {
	c.PageSize = size
	c.Page = 1
	return c
}

// WithPage returns c pointed at page.
func (c Controls) WithPage(page int) Controls {
	c.Page = page
	return c
}

// WithSort returns c ordered by field in direction.
func (c Controls) WithSort(field string, direction Direction) Controls {
	c.Sort = Sort{Field: field, Direction: direction}
	return c
}

func (c Controls) normalized() Controls {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Page < 1 {
		c.Page = 1
	}
	if strings.TrimSpace(c.RoleFilter) == "" {
		c.RoleFilter = models.RoleFilterAll
	}
	return c
}

// Result is one derived page of users.
type Result struct {
	Rows          []models.User `json:"rows"`
	TotalMatching int           `json:"totalMatching"`
	TotalPages    int           `json:"totalPages"`
	ShowingFrom   int           `json:"showingFrom"`
	ShowingTo     int           `json:"showingTo"`
	Page          int           `json:"page"`
	PageSize      int           `json:"pageSize"`
}

// Pagination converts the derived counts into list response metadata.
func (r Result) Pagination() *models.Pagination {
	return &models.Pagination{
		Page:        r.Page,
		PageSize:    r.PageSize,
		TotalCount:  r.TotalMatching,
		TotalPages:  r.TotalPages,
		ShowingFrom: r.ShowingFrom,
		ShowingTo:   r.ShowingTo,
	}
}

// Derive filters, sorts and paginates users. The input slice is never
// modified and out of range pages yield an empty row set.
func Derive(users []models.User, c Controls) Result {
	c = c.normalized()
	ordered := Apply(users, c)

	total := len(ordered)
	pages := total / c.PageSize
	if total%c.PageSize != 0 {
		pages++
	}

	res := Result{
		Rows:          []models.User{},
		TotalMatching: total,
		TotalPages:    pages,
		Page:          c.Page,
		PageSize:      c.PageSize,
	}
	// Page indexes are compared before any multiplication so huge pages
	// cannot overflow the offset.
	if c.Page-1 >= pages {
		res.ShowingTo = total
		if total > 0 {
			res.ShowingFrom = math.MaxInt
			if c.Page-1 <= (math.MaxInt-1)/c.PageSize {
				res.ShowingFrom = (c.Page-1)*c.PageSize + 1
			}
		}
		return res
	}
	start := (c.Page - 1) * c.PageSize
	end := start + min(c.PageSize, total-start)
	res.Rows = ordered[start:end]
	res.ShowingFrom = start + 1
	res.ShowingTo = end
	return res
}

// Apply filters and sorts users without paginating. The returned slice is
// always a fresh copy.
func Apply(users []models.User, c Controls) []models.User {
	c = c.normalized()

	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if matchesRole(u, c.RoleFilter) && matchesSearch(u, c.SearchText) {
			out = append(out, u)
		}
	}

	less, ok := comparators[c.Sort.Field]
	if !ok {
		return out
	}
	switch c.Sort.Direction {
	case Asc, "":
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	case Desc:
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
		reverse(out)
	}
	return out
}

func matchesRole(u models.User, role string) bool {
	return role == models.RoleFilterAll || string(u.Role) == role
}

func matchesSearch(u models.User, text string) bool {
	if text == "" {
		return true
	}
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(u.Name), needle) ||
		strings.Contains(strings.ToLower(u.Email), needle)
}

func reverse(users []models.User) {
	for i, j := 0, len(users)-1; i < j; i, j = i+1, j-1 {
		users[i], users[j] = users[j], users[i]
	}
}
