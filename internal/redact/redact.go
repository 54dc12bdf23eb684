// Package redact removes phone numbers from user supplied text and JSON
// before anything is logged or echoed back.
//
// Detection is a liberal heuristic: any digit run of seven or more
// characters (digits, parentheses, dashes and whitespace between two digits,
// optionally led by "+") counts as a phone number. Whitespace includes the
// Unicode space separators (NBSP, narrow NBSP, ...) and \v, not only ASCII.
// Long order numbers and prices get redacted as well; that is accepted.
package redact

import (
	"regexp"
	"strings"
)

// Token replaces every redacted value.
const Token = "[PHONE_REDACTED]"

// RE2's \s is ASCII only, so the separators are listed explicitly.
var phoneRe = regexp.MustCompile(`\+?[0-9][0-9()\-\s\v\p{Z}\x{85}\x{1c}-\x{1f}]{5,}[0-9]`)

// sensitiveKeys are matched as substrings of the lower-cased mapping key.
var sensitiveKeys = []string{"phone", "tel", "telephone"}

// IsPhoneLike reports whether text contains a phone-number-like substring.
func IsPhoneLike(text string) bool {
	return phoneRe.MatchString(text)
}

// RedactString returns Token when text contains a phone number anywhere,
// text otherwise. The whole value is replaced, not just the match.
func RedactString(text string) string {
	if IsPhoneLike(text) {
		return Token
	}
	return text
}

// RedactText replaces each phone-like run inside text with Token and keeps
// the surrounding text. Used for payloads that are not JSON.
func RedactText(text string) string {
	return phoneRe.ReplaceAllLiteralString(text, Token)
}

// IsSensitiveKey reports whether a mapping key names a phone field.
func IsSensitiveKey(key string) bool {
	lk := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lk, s) {
			return true
		}
	}
	return false
}

// RedactStructure returns a sanitized copy of v. Entries under sensitive keys
// become Token whatever their type; every other string goes through
// RedactString. v itself is not modified.
func RedactStructure(v Value) Value {
	switch v.Kind {
	case KindMapping:
		fields := make([]Field, len(v.Fields))
		for i, f := range v.Fields {
			if IsSensitiveKey(f.Key) {
				fields[i] = Field{Key: f.Key, Value: Text(Token)}
				continue
			}
			fields[i] = Field{Key: f.Key, Value: RedactStructure(f.Value)}
		}
		return Mapping(fields...)
	case KindSequence:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = RedactStructure(item)
		}
		return Sequence(items...)
	case KindText:
		return Text(RedactString(v.Text))
	case KindNull, KindBool, KindNumber:
		return v
	default:
		return v
	}
}
