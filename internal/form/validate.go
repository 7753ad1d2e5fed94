// Package form parses and validates the dashboard's edit forms.
//
// Each form is a typed struct built from the posted values. Validate is a
// pure function that returns the payload for the REST API or a
// *domain.ValidationError keyed by the same field paths the inputs use,
// e.g. "deliveryInfo.address.street".
package form

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/DukeRupert/shopdesk/internal/domain"
)

// MaxLength is the limit applied to every text field.
const MaxLength = 255

// MaxEmailLength follows RFC 5321.
const MaxEmailLength = 254

var phonePattern = regexp.MustCompile(`^(0|\+?84)(3|5|7|8|9)[0-9]{8}$`)

// Messages shown next to a field.
const (
	msgRequired = "This field is required"
	msgTooLong  = "Must be 255 characters or less"
	msgPhone    = "Incorrect phone number format."
	msgInteger  = "You must specify a whole number"
	msgNegative = "Must be 0 or more"
)

// checker accumulates field errors for one form.
type checker struct {
	op     string
	fields map[string]string
}

func newChecker(op string) *checker {
	return &checker{op: op, fields: make(map[string]string)}
}

// fail records msg for field unless an earlier check already failed it.
func (c *checker) fail(field, msg string) {
	if _, ok := c.fields[field]; !ok {
		c.fields[field] = msg
	}
}

func (c *checker) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.fail(field, msgRequired)
	}
}

func (c *checker) maxLength(field, value string) {
	if utf8.RuneCountInString(value) > MaxLength {
		c.fail(field, msgTooLong)
	}
}

// phone accepts an empty value; pair with required where needed.
func (c *checker) phone(field, value string) {
	c.maxLength(field, value)
	if value != "" && !phonePattern.MatchString(value) {
		c.fail(field, msgPhone)
	}
}

// email accepts an empty value; pair with required where needed.
func (c *checker) email(field, value string) {
	c.maxLength(field, value)
	if value == "" {
		return
	}
	if msg := emailProblem(value); msg != "" {
		c.fail(field, msg)
	}
}

// integer parses value, recording a field error when it is not a whole
// number. Empty values report required.
func (c *checker) integer(field, value string, min int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		c.fail(field, msgRequired)
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		c.fail(field, msgInteger)
		return 0
	}
	if n < min {
		c.fail(field, msgNegative)
	}
	return n
}

func (c *checker) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Op: c.op, Fields: c.fields}
}

// emailProblem returns why email is malformed, or "" when it looks valid.
func emailProblem(email string) string {
	if len(email) > MaxEmailLength {
		return "Email must be 254 characters or less"
	}
	if strings.Count(email, "@") != 1 {
		return "Email must contain exactly one @ symbol"
	}
	at := strings.IndexByte(email, '@')
	if at == 0 {
		return "Email cannot start with @"
	}
	if at == len(email)-1 {
		return "Email cannot end with @"
	}
	domainPart := email[at+1:]
	if !strings.Contains(domainPart, ".") || strings.HasSuffix(domainPart, ".") || strings.HasPrefix(domainPart, ".") {
		return "Email domain must contain a dot"
	}
	if strings.Contains(email, "..") {
		return "Email cannot contain consecutive dots"
	}
	if strings.ContainsAny(email, " \t\r\n<>()[]\\,;:\"") {
		return "Email contains invalid characters"
	}
	return ""
}

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// cleanText strips markup from free text and trims it. Entities escaped
// by the sanitizer are decoded again since the API stores plain text.
func cleanText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(trimmed)))
}
