/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package redact strips secrets (passwords, tokens, API keys) out of text
// before it is posted to Slack. pkg/alerting runs every alert's detail
// text (IMAP poll errors, email parse failures) through it; no other
// package calls it.
package redact

import (
	"fmt"
	"regexp"
)

var secretPattern = regexp.MustCompile(`(?i)(password|token|api[_-]?key|secret)\s*:\s*['"]?([^\s,'"}\]]+)['"]?`)

// fallbackPattern mirrors secretPattern but is kept as its own value so the
// degraded path never depends on the primary pattern compiling or behaving
// correctly.
var fallbackPattern = regexp.MustCompile(`(?i)(password|token|api[_-]?key|secret)\s*:\s*['"]?([^\s,'"}\]]+)['"]?`)

// Sanitizer redacts known secret shapes out of free-form text.
type Sanitizer struct{}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{}
}

// Sanitize redacts secrets using the primary pattern, marking each
// replacement distinctly from the fallback path so callers (and tests) can
// tell which path ran.
func (s *Sanitizer) Sanitize(input string) string {
	return secretPattern.ReplaceAllString(input, "$1: ***REDACTED***")
}

// SanitizeWithFallback sanitizes input, falling back to SafeFallback if
// Sanitize panics. A notification must always be deliverable even if the
// sanitization logic itself breaks.
func (s *Sanitizer) SanitizeWithFallback(input string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = s.SafeFallback(input)
			err = fmt.Errorf("sanitization failed, used fallback: %v", r)
		}
	}()
	result = s.Sanitize(input)
	return result, nil
}

// SafeFallback redacts secrets using its own copy of the secret regex,
// with no dependency on the primary pattern value. It is the last line of
// defense when Sanitize cannot be trusted.
func (s *Sanitizer) SafeFallback(input string) string {
	return fallbackPattern.ReplaceAllString(input, "$1: [REDACTED]")
}
