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

package workitem

import (
	"fmt"
	"strconv"
	"strings"
)

// nextVersion computes the version string a new snapshot receives: parse
// current as "MAJOR.MINOR" and bump MINOR by one. An invalid format (not
// two dot-separated integers) resets to "1.0"; a value with the right
// shape but a non-numeric MINOR degrades to "1.1" — a tolerant behavior for
// legacy data that predates strict versioning.
func nextVersion(current string) string {
	parts := strings.SplitN(current, ".", 2)
	if len(parts) != 2 {
		return "1.0"
	}

	major, majErr := strconv.Atoi(parts[0])
	minor, minErr := strconv.Atoi(parts[1])
	if majErr != nil {
		return "1.0"
	}
	if minErr != nil {
		return "1.1"
	}
	return fmt.Sprintf("%d.%d", major, minor+1)
}

// parseVersion splits "MAJOR.MINOR" into comparable integers for sorting
// and the strict-monotonicity invariant. Malformed input sorts as (0, 0).
func parseVersion(v string) (major, minor int) {
	parts := strings.SplitN(v, ".", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	major, _ = strconv.Atoi(parts[0])
	minor, _ = strconv.Atoi(parts[1])
	return major, minor
}
