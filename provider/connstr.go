package provider

import (
	"strings"
)

// ConnectionString is an ordered list of key=value pairs separated by
// semicolons. Keys compare case-insensitively.
type ConnectionString struct {
	keys   []string
	values []string
}

// ParseConnectionString splits s into pairs. Values may be wrapped in
// double quotes to carry semicolons; a doubled quote inside is a literal.
func ParseConnectionString(s string) ConnectionString {
	var cs ConnectionString
	for i := 0; i < len(s); {
		// key
		eq := strings.IndexByte(s[i:], '=')
		semi := strings.IndexByte(s[i:], ';')
		if eq < 0 || (semi >= 0 && semi < eq) {
			if semi < 0 {
				break
			}
			i += semi + 1
			continue
		}
		key := strings.TrimSpace(s[i : i+eq])
		i += eq + 1

		// value
		for i < len(s) && s[i] == ' ' {
			i++
		}
		var value string
		if i < len(s) && s[i] == '"' {
			var b strings.Builder
			i++
			for i < len(s) {
				if s[i] == '"' {
					if i+1 < len(s) && s[i+1] == '"' {
						b.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			value = b.String()
			if next := strings.IndexByte(s[i:], ';'); next >= 0 {
				i += next + 1
			} else {
				i = len(s)
			}
		} else {
			end := strings.IndexByte(s[i:], ';')
			if end < 0 {
				value = strings.TrimSpace(s[i:])
				i = len(s)
			} else {
				value = strings.TrimSpace(s[i : i+end])
				i += end + 1
			}
		}

		if key != "" {
			cs.Set(key, value)
		}
	}
	return cs
}

func (cs ConnectionString) find(key string) int {
	for i, k := range cs.keys {
		if strings.EqualFold(k, key) {
			return i
		}
	}
	return -1
}

// Get returns the value for key, or "".
func (cs ConnectionString) Get(key string) string {
	if i := cs.find(key); i >= 0 {
		return cs.values[i]
	}
	return ""
}

// Set replaces the value for key, or appends the pair.
func (cs *ConnectionString) Set(key, value string) {
	if i := cs.find(key); i >= 0 {
		cs.values[i] = value
		return
	}
	cs.keys = append(cs.keys, key)
	cs.values = append(cs.values, value)
}

// Provider returns the Provider key.
func (cs ConnectionString) Provider() string {
	return cs.Get("Provider")
}

// DataSourceKey returns the key that names the database file.
func (cs ConnectionString) DataSourceKey() string {
	for _, key := range []string{"Data Source", "DBQ"} {
		if i := cs.find(key); i >= 0 {
			return cs.keys[i]
		}
	}
	return "Data Source"
}

// DataSource returns the database file or URL.
func (cs ConnectionString) DataSource() string {
	return cs.Get(cs.DataSourceKey())
}

func (cs ConnectionString) String() string {
	var b strings.Builder
	for i, key := range cs.keys {
		b.WriteString(key)
		b.WriteByte('=')
		value := cs.values[i]
		if strings.ContainsAny(value, ";\"") || strings.TrimSpace(value) != value {
			value = `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
		}
		b.WriteString(value)
		b.WriteByte(';')
	}
	return b.String()
}
