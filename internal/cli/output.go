package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/breakthrough-cafe/cafe-cms/internal/client"
	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The API rejected the request
	ExitCommandError = 2 // Bad flags, unreadable input, unreachable server
)

// ExitError carries the exit code for a failed command
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. API rejections map to
// ExitFailure, everything else to ExitCommandError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return ExitFailure
	}
	return ExitCommandError
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Printer renders API values in the configured format. Text output is
// localized with the session language.
type Printer struct {
	Format  string
	Writer  io.Writer
	Session client.Session
}

// Value writes v as JSON or YAML, or calls text for text output
func (p *Printer) Value(v any, text func(w io.Writer) error) error {
	switch p.Format {
	case FormatJSON:
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		// Round-trip through JSON so YAML keys follow the API's field names
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(p.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(p.Writer)
	}
}

// ArticleList prints one page of articles
func (p *Printer) ArticleList(list *models.ArticleList) error {
	return p.Value(list, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATUS\tVIEWS\tCATEGORY\tTITLE")
		for _, a := range list.Items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", a.ID, a.Status, a.Views, a.Category, p.Session.Text(a.Title))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		more := ""
		if list.HasMore {
			more = ", more available"
		}
		_, err := fmt.Fprintf(w, "page %d, %d of %d%s\n", list.Page, len(list.Items), list.Total, more)
		return err
	})
}

// Article prints one article
func (p *Printer) Article(a *models.Article) error {
	return p.Value(a, func(w io.Writer) error {
		published := "-"
		if a.PublishedAt != nil {
			published = a.PublishedAt.Format(time.RFC3339)
		}
		tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
		rows := [][2]string{
			{"id", a.ID},
			{"title", p.Session.Text(a.Title)},
			{"status", string(a.Status)},
			{"published", published},
			{"category", a.Category},
			{"author", a.Author},
			{"views", strconv.FormatInt(a.Views, 10)},
			{"updated", a.UpdatedAt.Format(time.RFC3339)},
		}
		for _, r := range rows {
			fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%s\n", p.Session.Text(a.Excerpt))
		return err
	})
}

// Categories prints the category list
func (p *Printer) Categories(categories []*models.Category) error {
	return p.Value(map[string]any{"categories": categories}, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tORDER\tTITLE")
		for _, c := range categories {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Slug, c.Order, p.Session.Text(c.Title))
		}
		return tw.Flush()
	})
}

// Message prints a one-line confirmation in text mode, or v otherwise
func (p *Printer) Message(v any, msg string) error {
	return p.Value(v, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, msg)
		return err
	})
}
