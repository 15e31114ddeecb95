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
	"encoding/json"
	"strings"
)

type llmExtraction struct {
	Status    string   `json:"status"`
	Comment   string   `json:"comment"`
	TimeSpent *float64 `json:"time_spent"`
	NextSteps string   `json:"next_steps"`
}

// parseLLMResponse decodes the model's JSON reply, tolerating a
// markdown code fence around it. Any field absent or invalid is left
// zero-valued rather than failing the whole extraction.
func parseLLMResponse(raw string) Instruction {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var parsed llmExtraction
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Instruction{}
	}

	out := Instruction{NextSteps: parsed.NextSteps}
	if canonical, ok := statusAliases[strings.ToLower(strings.TrimSpace(parsed.Status))]; ok {
		out.Status = canonical
	}
	if len(parsed.Comment) > 0 && len(parsed.Comment) <= 2000 {
		out.Comment = parsed.Comment
	}
	if parsed.TimeSpent != nil && *parsed.TimeSpent >= 0 {
		out.TimeSpent = parsed.TimeSpent
	}
	return out
}
