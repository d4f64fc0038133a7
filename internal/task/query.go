package task

import (
	"net/url"
	"strconv"
	"strings"

	"todo_api/internal/apperror"
)

type OrderField struct {
	Column string
	Desc   bool
}

// ListOptions is the parsed form of the list query string
type ListOptions struct {
	Completed   *bool
	SearchTerms []string
	Ordering    []OrderField
	Page        int
}

var orderableFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
}

var defaultOrdering = []OrderField{{Column: "created_at", Desc: true}}

// ParseListOptions reads completed, search, ordering and page. Only a
// malformed page number is an error; everything else degrades to "no filter"
// or the default ordering.
func ParseListOptions(values url.Values) (ListOptions, error) {
	opts := ListOptions{
		Ordering: defaultOrdering,
		Page:     1,
	}

	if _, ok := values["completed"]; ok {
		completed := strings.ToLower(values.Get("completed")) == "true"
		opts.Completed = &completed
	}

	opts.SearchTerms = parseSearchTerms(values.Get("search"))

	if ordering := parseOrdering(values.Get("ordering")); len(ordering) > 0 {
		opts.Ordering = ordering
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return ListOptions{}, apperror.ValidationField("page", "Invalid page.")
		}
		opts.Page = page
	}

	return opts, nil
}

// parseSearchTerms splits on whitespace and commas. Each term must match.
func parseSearchTerms(raw string) []string {
	raw = strings.ReplaceAll(raw, "\x00", "")
	return strings.Fields(strings.ReplaceAll(raw, ",", " "))
}

func parseOrdering(raw string) []OrderField {
	var fields []OrderField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column := strings.TrimPrefix(part, "-")
		if !orderableFields[column] {
			continue
		}
		fields = append(fields, OrderField{Column: column, Desc: desc})
	}
	return fields
}
