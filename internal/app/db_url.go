package app

import (
	"net/url"
	"strings"
)

// Postgres keeps at most NAMEDATALEN-1 bytes of application_name.
const maxApplicationNameLen = 63

// dbURLOptions are connection parameters added to DB_URL unless it already sets them.
type dbURLOptions struct {
	DisablePreparedBinary bool
	ApplicationName       string
}

// storeDBURL accepts both the postgres:// form and the key=value form lib/pq understands.
func storeDBURL(raw string, opts dbURLOptions) string {
	params := make([][2]string, 0, 2)
	if opts.DisablePreparedBinary {
		params = append(params, [2]string{"disable_prepared_binary_result", "yes"})
	}
	if name := applicationName(opts.ApplicationName); name != "" {
		params = append(params, [2]string{"application_name", name})
	}
	if len(params) == 0 {
		return raw
	}

	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		query := parsed.Query()
		changed := false
		for _, p := range params {
			if query.Get(p[0]) == "" {
				query.Set(p[0], p[1])
				changed = true
			}
		}
		if !changed {
			return raw
		}
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	if !strings.Contains(trimmed, "=") {
		return raw
	}
	out := trimmed
	for _, p := range params {
		if dsnValue(trimmed, p[0]) != "" {
			continue
		}
		out += " " + p[0] + "=" + quoteDSNValue(p[1])
	}
	return out
}

// runApplicationName tags pool connections so pg_stat_activity shows which run holds them.
func runApplicationName(service, runID string) string {
	service = strings.TrimSpace(service)
	if runID == "" {
		return service
	}
	if service == "" {
		return runID
	}
	return service + "/" + runID
}

func applicationName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > maxApplicationNameLen {
		name = name[:maxApplicationNameLen]
	}
	return name
}

func dbNameFromURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed != nil && parsed.Scheme != "" {
		name := strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
		if name != "" {
			return name
		}
	}
	return dsnValue(trimmed, "dbname")
}

func dsnValue(dsn, key string) string {
	prefix := key + "="
	for _, token := range strings.Fields(dsn) {
		if !strings.HasPrefix(token, prefix) {
			continue
		}
		value := strings.Trim(strings.TrimPrefix(token, prefix), `"'`)
		if value != "" {
			return value
		}
	}
	return ""
}

func quoteDSNValue(value string) string {
	if !strings.ContainsAny(value, " '\\") {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}
