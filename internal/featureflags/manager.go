// Package featureflags evaluates rollout flags configured through
// FEATURE_FLAGS, e.g. "activity_audit=on,activity_events=25%".
package featureflags

import (
	"hash/fnv"
	"maps"
	"strconv"
	"strings"
)

// Known flags and the state they take when FEATURE_FLAGS leaves them out.
const (
	// ActivityAudit stores authenticated requests as activities.
	ActivityAudit = "activity_audit"
	// ActivityEvents publishes activity.recorded events.
	ActivityEvents = "activity_events"
)

var defaults = map[string]bool{
	ActivityAudit:  true,
	ActivityEvents: true,
}

// rule is a parsed flag value. percent is -1 for on/off rules.
type rule struct {
	raw     string
	on      bool
	percent int
	invalid bool
}

func parseRule(value string) rule {
	r := rule{raw: value, percent: -1}
	switch value {
	case "on", "true", "1":
		r.on = true
		return r
	case "off", "false", "0":
		return r
	}
	if n, ok := strings.CutSuffix(value, "%"); ok {
		if pct, err := strconv.Atoi(n); err == nil {
			r.percent = min(max(pct, 0), 100)
			return r
		}
	}
	r.invalid = true
	return r
}

// Manager holds the parsed FEATURE_FLAGS list. A nil Manager reports every
// flag at its fallback.
type Manager struct {
	rules map[string]rule
}

// NewManager parses a comma-separated key=value list. Malformed pairs are
// skipped.
func NewManager(raw string) *Manager {
	m := &Manager{rules: make(map[string]rule)}
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		m.rules[key] = parseRule(value)
	}
	return m
}

// Enabled reports whether name is on for subject, usually a user id.
// Unconfigured flags fall back to their known default, or off.
func (m *Manager) Enabled(name, subject string) bool {
	return m.EnabledOr(name, subject, defaults[normalize(name)])
}

// EnabledOr is Enabled with an explicit fallback for flags that are not
// configured or carry an unreadable value. Percentage rollouts bucket the
// subject deterministically and are off for an empty subject.
func (m *Manager) EnabledOr(name, subject string, fallback bool) bool {
	if m == nil {
		return fallback
	}
	r, ok := m.rules[normalize(name)]
	switch {
	case !ok, r.invalid:
		return fallback
	case r.percent < 0:
		return r.on
	case r.percent == 100:
		return true
	case r.percent == 0, subject == "":
		return false
	}
	return rolloutBucket(name, subject) < r.percent
}

// Raw returns the configured values as written.
func (m *Manager) Raw() map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every configured and known flag for subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	out := maps.Clone(defaults)
	if m == nil {
		return out
	}
	for name := range m.rules {
		out[name] = m.Enabled(name, subject)
	}
	for name := range defaults {
		out[name] = m.Enabled(name, subject)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
