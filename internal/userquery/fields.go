package userquery

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/crm-admin-api/internal/models"
)

type lessFunc func(a, b models.User) bool

// comparators maps a sortable field identifier to its ascending order.
var comparators = map[string]lessFunc{
	"id":     func(a, b models.User) bool { return a.ID < b.ID },
	"name":   func(a, b models.User) bool { return a.Name < b.Name },
	"email":  func(a, b models.User) bool { return a.Email < b.Email },
	"role":   func(a, b models.User) bool { return a.Role < b.Role },
	"status": func(a, b models.User) bool { return a.Status < b.Status },
	"lastLogin": func(a, b models.User) bool {
		// never logged in sorts first
		if a.LastLogin == nil || b.LastLogin == nil {
			return a.LastLogin == nil && b.LastLogin != nil
		}
		return a.LastLogin.Before(*b.LastLogin)
	},
	"avatar": func(a, b models.User) bool { return deref(a.Avatar) < deref(b.Avatar) },
}

// SortableFields lists the accepted sort field identifiers.
func SortableFields() []string {
	return []string{"id", "name", "email", "role", "status", "lastLogin", "avatar"}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ParseControls reads controls from query parameters: role, search, sort,
// order, page and page_size. Malformed numbers fall back to defaults.
func ParseControls(values url.Values) Controls {
	c := DefaultControls()
	if role := strings.TrimSpace(values.Get("role")); role != "" {
		c.RoleFilter = role
	}
	c.SearchText = strings.TrimSpace(values.Get("search"))
	if field := strings.TrimSpace(values.Get("sort")); field != "" {
		dir := Direction(strings.ToLower(strings.TrimSpace(values.Get("order"))))
		if dir == "" {
			dir = Asc
		}
		c.Sort = Sort{Field: field, Direction: dir}
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil {
		c.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil {
		c.PageSize = size
	}
	return c.normalized()
}
