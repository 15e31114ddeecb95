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

package scheduler

import "time"

// convert maps an hours-from-project_start offset to a wall-clock time.
// With respect_weekends=false it is a flat addition. With
// respect_weekends=true only working_hours_per_day hours count per
// weekday, Saturday/Sunday are skipped entirely, and a conversion that
// would otherwise land outside the working day snaps to 09:00 local of
// the next weekday.
func convert(start time.Time, hours float64, c Constraints) time.Time {
	if !c.RespectWeekends {
		return start.Add(time.Duration(hours * float64(time.Hour)))
	}

	perDay := c.WorkingHoursPerDay
	if perDay <= 0 {
		perDay = 8
	}

	day := nextWorkingDayStart(start)
	remaining := hours
	for {
		if remaining <= perDay {
			return day.Add(time.Duration(remaining * float64(time.Hour)))
		}
		remaining -= perDay
		day = nextWorkingDayStart(day.AddDate(0, 0, 1))
	}
}

// nextWorkingDayStart returns t snapped forward to 09:00 local of the
// same day if t is already a weekday, or of the next Monday if t falls
// on a weekend.
func nextWorkingDayStart(t time.Time) time.Time {
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 9, 0, 0, 0, t.Location())
}
