package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/DukeRupert/shopdesk/internal/catalog"
	"github.com/DukeRupert/shopdesk/internal/csrf"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/view"
)

// TemplateFuncs returns a FuncMap with custom template functions.
// Status helpers read labels and colours from cat.
func TemplateFuncs(cat *catalog.Catalog) template.FuncMap {
	money := message.NewPrinter(language.Vietnamese)

	return template.FuncMap{
		// Math functions
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},

		// Date/Time functions
		"year": func() int {
			return time.Now().Year()
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"formatDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},

		// String functions
		"title": func(v interface{}) string {
			return cases.Title(language.English).String(fmt.Sprint(v))
		},
		"truncate": func(s string, length int) string {
			if utf8.RuneCountInString(s) <= length {
				return s
			}
			return string([]rune(s)[:length]) + "..."
		},
		"money": func(amount int) string {
			return money.Sprintf("%d ₫", amount)
		},
		"itoa": strconv.Itoa,

		// JSON encoding for hx-vals and safe JavaScript embedding
		"json": func(v interface{}) template.JS {
			b, err := json.Marshal(v)
			if err != nil {
				return template.JS(`""`)
			}
			return template.JS(b)
		},

		// Collection functions
		"dict": func(values ...interface{}) map[string]interface{} {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil
				}
				dict[key] = values[i+1]
			}
			return dict
		},
		"pageRange": pageRange,
		"pageURL": func(base string, page int, query string) template.URL {
			u := base + "?page=" + strconv.Itoa(page)
			if query != "" {
				u += "&" + query
			}
			return template.URL(u)
		},

		// UUID functions
		"uuidString": func(u uuid.UUID) string {
			return u.String()
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`,
				csrf.FormFieldName, template.HTMLEscapeString(token)))
		},
		"fieldError": func(errs *domain.ValidationError, path string) string {
			return errs.Field(path)
		},

		// templ fragments inside html/template pages
		"component": func(c templ.Component) (template.HTML, error) {
			return view.HTML(context.Background(), c)
		},

		// Order status helpers
		"statusLabel": func(s domain.OrderStatus) string {
			return cat.Label(s)
		},
		"statusBadge": func(s domain.OrderStatus) (template.HTML, error) {
			return view.HTML(context.Background(), view.StatusBadge(cat.Lookup(s)))
		},
		"statusOptions": cat.Options,
	}
}

// pageRange returns at most seven page numbers centred on current.
func pageRange(currentPage, totalPages int) []int {
	const maxPages = 7
	start, end := 1, totalPages
	if totalPages > maxPages {
		start = currentPage - maxPages/2
		end = currentPage + maxPages/2
		if start < 1 {
			start, end = 1, maxPages
		}
		if end > totalPages {
			start, end = totalPages-maxPages+1, totalPages
		}
	}

	result := []int{}
	for i := start; i <= end; i++ {
		result = append(result, i)
	}
	return result
}
