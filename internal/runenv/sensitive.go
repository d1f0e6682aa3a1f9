package runenv

import (
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// PlainRule marks values that are safe to show, such as ports or flags.
type PlainRule interface {
	IsPlain(key, value string) bool
}

// Classifier decides which loaded values are secrets.
type Classifier struct {
	rules []PlainRule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: []PlainRule{
		urlRule{},
		hostnameRule{},
		booleanRule{},
		numberRule{},
		wellKnownRule{},
	}}
}

// tokenPatterns match provider credentials that would otherwise pass a
// plain rule, such as webhook URLs without userinfo.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_-]+`),
	regexp.MustCompile(`https://discord(app)?\.com/api/webhooks/[0-9]+/[A-Za-z0-9_-]+`),
	regexp.MustCompile(`(ghp|gho|ghu|ghs)_[0-9A-Za-z]{36}`),
	regexp.MustCompile(`github_pat_[0-9A-Za-z_]{22,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`[?&](sig|X-Amz-Signature|token)=[^&]+`),
}

// Sensitive reports whether value should be hidden. Empty values never are.
// Known credential formats always are.
func (c *Classifier) Sensitive(key, value string) bool {
	if value == "" {
		return false
	}
	for _, p := range tokenPatterns {
		if p.MatchString(value) {
			return true
		}
	}
	for _, rule := range c.rules {
		if rule.IsPlain(key, value) {
			return false
		}
	}
	return true
}

// urlRule passes URLs without credentials.
type urlRule struct{}

func (urlRule) IsPlain(_, value string) bool {
	if !strings.Contains(value, "://") {
		return false
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	if u.User != nil {
		_, hasPassword := u.User.Password()
		if u.User.Username() != "" || hasPassword {
			return false
		}
	}
	return true
}

type hostnameRule struct{}

var localhostPattern = regexp.MustCompile(`(?i)^(localhost|127\.0\.0\.1|::1|0\.0\.0\.0)$`)

func (hostnameRule) IsPlain(_, value string) bool {
	return localhostPattern.MatchString(value)
}

type booleanRule struct{}

func (booleanRule) IsPlain(_, value string) bool {
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no", "on", "off":
		return true
	}
	return false
}

type numberRule struct{}

func (numberRule) IsPlain(_, value string) bool {
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

type wellKnownRule struct{}

var wellKnownValues = map[string][]string{
	"NODE_ENV":  {"development", "production", "test"},
	"APP_ENV":   {"development", "staging", "production", "test", "local"},
	"LOG_LEVEL": {"trace", "debug", "info", "warn", "warning", "error", "verbose"},
}

func (wellKnownRule) IsPlain(key, value string) bool {
	allowed, ok := wellKnownValues[strings.ToUpper(key)]
	if !ok {
		return false
	}
	return slices.Contains(allowed, strings.ToLower(strings.TrimSpace(value)))
}

// Redactor replaces secret values in text with [REDACTED:KEY].
type Redactor struct {
	replacer *strings.Replacer
}

// NewRedactor builds a Redactor over the sensitive entries of vars. Longer
// values are replaced first so that a secret containing another is not
// split.
func NewRedactor(vars map[string]string, c *Classifier) *Redactor {
	if c == nil {
		c = NewClassifier()
	}
	type secret struct{ key, value string }
	var secrets []secret
	for k, v := range vars {
		if c.Sensitive(k, v) {
			secrets = append(secrets, secret{k, v})
		}
	}
	sort.Slice(secrets, func(i, j int) bool {
		if len(secrets[i].value) != len(secrets[j].value) {
			return len(secrets[i].value) > len(secrets[j].value)
		}
		return secrets[i].key < secrets[j].key
	})

	oldnew := make([]string, 0, 2*len(secrets))
	for _, s := range secrets {
		oldnew = append(oldnew, s.value, "[REDACTED:"+s.key+"]")
	}
	return &Redactor{replacer: strings.NewReplacer(oldnew...)}
}

func (r *Redactor) Redact(s string) string {
	if r == nil {
		return s
	}
	return r.replacer.Replace(s)
}

// MaskSecretValue keeps at most the last four characters of value.
func MaskSecretValue(value string) string {
	length := len(value)
	if length == 0 {
		return ""
	}
	switch {
	case length <= 4:
		return strings.Repeat("*", length)
	case length <= 8:
		return strings.Repeat("*", length-2) + value[length-2:]
	default:
		return strings.Repeat("*", length-4) + value[length-4:]
	}
}
