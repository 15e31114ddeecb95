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

package email

import (
	"regexp"
	"strconv"
	"strings"
)

// subjectPattern extracts the work-item id from a (possibly
// "Re: "-prefixed) subject line. Case-insensitive per spec.
var subjectPattern = regexp.MustCompile(`(?i)\[workitem-([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})\]`)

// extractWorkItemID returns the work-item id embedded in subject, or ""
// if the subject carries none.
func extractWorkItemID(subject string) string {
	m := subjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

var (
	statusPattern  = regexp.MustCompile(`(?i)status\s*:\s*([a-z_]+)`)
	commentPattern = regexp.MustCompile(`(?is)comment\s*:\s*(.+?)(?:\s*[|\n]\s*(?:status|time)\s*:|$)`)
	timePattern    = regexp.MustCompile(`(?i)time\s*:\s*(-?[0-9]+(?:\.[0-9]+)?)`)
)

// statusAliases maps every recognized reply-status token to the
// canonical work-item status it represents.
var statusAliases = map[string]string{
	"draft":       "draft",
	"active":      "active",
	"in_progress": "in_progress",
	"completed":   "completed",
	"archived":    "archived",
	"done":        "completed",
	"finished":    "completed",
	"complete":    "completed",
	"working":     "active",
	"started":     "active",
	"ongoing":     "active",
}

// parseStructured runs the tolerant STATUS:/COMMENT:/TIME: grammar
// against body, in any order, separated by "|" or newline. Unknown
// statuses and negative times are dropped rather than rejecting the
// whole parse. Returns a zero Instruction (every field empty) if
// nothing recognizable was found.
func parseStructured(body string) Instruction {
	var out Instruction

	if m := statusPattern.FindStringSubmatch(body); m != nil {
		token := strings.ToLower(strings.TrimSpace(m[1]))
		if canonical, ok := statusAliases[token]; ok {
			out.Status = canonical
		}
	}

	if m := commentPattern.FindStringSubmatch(body); m != nil {
		comment := strings.TrimSpace(m[1])
		if comment != "" && len(comment) <= 2000 {
			out.Comment = comment
		}
	}

	if m := timePattern.FindStringSubmatch(body); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= 0 {
			out.TimeSpent = &v
		}
	}

	return out
}

// isEmpty reports whether none of an Instruction's fields were
// populated — the signal to fall through to the next pipeline step.
func (i Instruction) isEmpty() bool {
	return i.Status == "" && i.Comment == "" && i.TimeSpent == nil && i.NextSteps == ""
}
