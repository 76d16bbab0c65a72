package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
)

var (
	slugRegex  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	colorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Errors is a list of validation failures; it implements error
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Message)
	}
	return strings.Join(msgs, "; ")
}

// Err returns e as an error, or nil when there are no failures
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateArticle validates a create request
func ValidateArticle(in *models.ArticleInput) Errors {
	var errors Errors

	errors = append(errors, requireLocalized("title", in.Title)...)
	errors = append(errors, requireLocalized("excerpt", in.Excerpt)...)
	errors = append(errors, requireLocalized("content", in.Content)...)
	errors = append(errors, requireLocalized("readTime", in.ReadTime)...)

	// Validate author
	if strings.TrimSpace(in.Author) == "" {
		errors = append(errors, ValidationError{Field: "author", Message: "author is required"})
	}

	// Validate status
	if in.Status != "" && !models.ValidStatuses[in.Status] {
		errors = append(errors, invalidStatus(in.Status))
	}

	if in.CoverImage != "" && !isValidURL(in.CoverImage) {
		errors = append(errors, ValidationError{Field: "coverImage", Message: "coverImage must be an http(s) URL or absolute path", Value: in.CoverImage})
	}

	return errors
}

// ValidateArticlePatch validates the fields present in a partial update.
// Absent fields are never checked.
func ValidateArticlePatch(p *models.ArticlePatch) Errors {
	var errors Errors

	localized := []struct {
		field string
		value *models.LocalizedText
	}{
		{"title", p.Title},
		{"excerpt", p.Excerpt},
		{"content", p.Content},
		{"readTime", p.ReadTime},
	}
	for _, l := range localized {
		if l.value != nil {
			errors = append(errors, requireLocalized(l.field, *l.value)...)
		}
	}

	if p.Author != nil && strings.TrimSpace(*p.Author) == "" {
		errors = append(errors, ValidationError{Field: "author", Message: "author cannot be empty"})
	}

	if p.Status != nil && !models.ValidStatuses[*p.Status] {
		errors = append(errors, invalidStatus(*p.Status))
	}

	if p.CoverImage != nil && *p.CoverImage != "" && !isValidURL(*p.CoverImage) {
		errors = append(errors, ValidationError{Field: "coverImage", Message: "coverImage must be an http(s) URL or absolute path", Value: *p.CoverImage})
	}

	return errors
}

// ValidateCategory validates a category create request
func ValidateCategory(in *models.CategoryInput) Errors {
	var errors Errors

	// Validate slug
	if in.Slug == "" {
		errors = append(errors, ValidationError{Field: "slug", Message: "slug is required"})
	} else if !slugRegex.MatchString(in.Slug) {
		errors = append(errors, ValidationError{Field: "slug", Message: "slug must be kebab-case (lowercase letters, numbers, hyphens)", Value: in.Slug})
	}

	errors = append(errors, requireLocalized("title", in.Title)...)
	errors = append(errors, requireLocalized("description", in.Description)...)

	if in.Color != "" && !colorRegex.MatchString(in.Color) {
		errors = append(errors, ValidationError{Field: "color", Message: "color must be a hex value like #ff8800", Value: in.Color})
	}

	if in.Order < 0 {
		errors = append(errors, ValidationError{Field: "order", Message: "order cannot be negative", Value: in.Order})
	}

	return errors
}

// IsValidSlug reports whether s is a well-formed category slug
func IsValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

func requireLocalized(field string, t models.LocalizedText) Errors {
	var errors Errors
	if strings.TrimSpace(t.Zh) == "" {
		errors = append(errors, ValidationError{Field: field + ".zh", Message: field + ".zh is required"})
	}
	if strings.TrimSpace(t.En) == "" {
		errors = append(errors, ValidationError{Field: field + ".en", Message: field + ".en is required"})
	}
	return errors
}

func invalidStatus(s models.ArticleStatus) ValidationError {
	return ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("invalid status, must be one of: %s, %s", models.StatusDraft, models.StatusPublished),
		Value:   string(s),
	}
}

func isValidURL(s string) bool {
	if strings.HasPrefix(s, "/") {
		return true
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
