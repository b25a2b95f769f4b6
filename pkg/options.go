package cache

// options.go parses the back-end options string shared by every back-end:
// a form-encoded "k1=v1&k2=v2&..." list. Parsing this small k=v grammar is
// one call to net/url.ParseQuery - see DESIGN.md for why this single piece
// of config stays on the standard library while everything else reaches for
// a third-party dependency.
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"net/url"
	"strconv"
	"time"
)

// Options is the parsed "k=v&k=v" options string handed to Init/RegisterBackend
// constructors. It is a thin, ordered-agnostic view over url.Values.
type Options struct {
	values url.Values
}

// ParseOptions parses a form-encoded options string into an Options value.
// An empty string yields an empty-but-valid Options.
func ParseOptions(raw string) (Options, error) {
	if raw == "" {
		return Options{values: url.Values{}}, nil
	}
	v, err := url.ParseQuery(raw)
	if err != nil {
		return Options{}, newError(KindInvalidConfig, "malformed options string", err)
	}
	return Options{values: v}, nil
}

// Get returns the first value for key, or "" if absent.
func (o Options) Get(key string) string {
	if o.values == nil {
		return ""
	}
	return o.values.Get(key)
}

// GetDefault returns the value for key, or def if absent/empty.
func (o Options) GetDefault(key, def string) string {
	if v := o.Get(key); v != "" {
		return v
	}
	return def
}

// GetInt parses key as an integer, returning def on absence or parse error.
func (o Options) GetInt(key string, def int) int {
	v := o.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool parses key as a bool ("true"/"false"), returning def otherwise.
func (o Options) GetBool(key string, def bool) bool {
	v := o.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// GetDuration parses key as a count of seconds, returning def otherwise.
func (o Options) GetDuration(key string, def time.Duration) time.Duration {
	n := o.GetInt(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// GetDurationMillis parses key as a count of milliseconds (the "_ms"-suffixed
// options such as timeout_ms), returning def otherwise.
func (o Options) GetDurationMillis(key string, def time.Duration) time.Duration {
	n := o.GetInt(key, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// Has reports whether key was present in the options string at all (distinct
// from being present but empty).
func (o Options) Has(key string) bool {
	if o.values == nil {
		return false
	}
	_, ok := o.values[key]
	return ok
}
