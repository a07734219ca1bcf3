package app

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	maxTracedQueryLength = 512
	valuesKeyword        = " VALUES "
)

var queryWhitespaceRegex = regexp.MustCompile(`\s+`)

// formatDBQueryForTrace folds the placeholder tuples of chunked inserts into
// one tuple and a row count so the ON CONFLICT clause survives truncation.
func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := collapseInsertValues(queryWhitespaceRegex.ReplaceAllString(query, " "))
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}

func collapseInsertValues(query string) string {
	if !strings.HasPrefix(query, "INSERT INTO ") {
		return query
	}
	idx := strings.Index(query, valuesKeyword)
	if idx < 0 {
		return query
	}
	start := idx + len(valuesKeyword)
	rest := query[start:]

	first := ""
	rows := 0
	for strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return query
		}
		if rows == 0 {
			first = rest[:end+1]
		}
		rows++
		rest = rest[end+1:]
		if !strings.HasPrefix(rest, ", (") {
			break
		}
		rest = rest[2:]
	}
	if rows < 2 {
		return query
	}
	return query[:start] + first + " /* " + strconv.Itoa(rows) + " rows */" + rest
}
