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

package sprint

import (
	"context"
	"sort"
	"time"

	"github.com/almforge/coreforge/pkg/graph"
)

// Velocity sums estimated_hours and story_points over every task
// ASSIGNED_TO_SPRINT with status=completed.
func (c *Coordinator) Velocity(ctx context.Context, sprintID string) (Velocity, error) {
	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{To: sprintID, Type: EdgeAssignedToSprint})
	if err != nil {
		return Velocity{}, err
	}

	var v Velocity
	for _, rel := range rels {
		task, err := c.tasks.Get(ctx, rel.From)
		if err != nil || task.Status != "completed" {
			continue
		}
		if task.EstimatedHours != nil {
			v.Hours += *task.EstimatedHours
		}
		if task.StoryPoints != nil {
			v.StoryPoints += *task.StoryPoints
		}
	}
	return v, nil
}

// TeamAvgVelocity averages the velocities of the most recent n completed
// sprints for projectID, ordered by end_date descending.
func (c *Coordinator) TeamAvgVelocity(ctx context.Context, projectID string, n int) (Velocity, error) {
	nodes, err := c.g.FindNodes(ctx, SprintNodeLabel, func(node *graph.Node) bool {
		return node.Props["project_id"] == projectID && node.Props["status"] == string(StatusCompleted)
	})
	if err != nil {
		return Velocity{}, err
	}

	sprints := make([]*Sprint, 0, len(nodes))
	for _, node := range nodes {
		sprints = append(sprints, fromProps(node.Props))
	}
	sort.Slice(sprints, func(i, j int) bool { return sprints[i].EndDate.After(sprints[j].EndDate) })
	if len(sprints) > n {
		sprints = sprints[:n]
	}
	if len(sprints) == 0 {
		return Velocity{}, nil
	}

	var total Velocity
	for _, s := range sprints {
		total.Hours += s.ActualVelocityHours
		total.StoryPoints += s.ActualVelocityStoryPoints
	}
	return Velocity{
		Hours:       total.Hours / float64(len(sprints)),
		StoryPoints: total.StoryPoints / len(sprints),
	}, nil
}

// Burndown produces one point per day from the sprint's start_date to
// end_date inclusive. Ideal decreases linearly from the sprint's total
// planned work at day 0 to zero at the last day; actual at day d is total
// minus work completed on or before d, determined by each task's
// updated_at alongside status=completed. Both series are monotone
// non-increasing by construction.
func (c *Coordinator) Burndown(ctx context.Context, sprintID string) ([]BurndownPoint, error) {
	s, err := c.Get(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	rels, err := c.g.Relationships(ctx, graph.RelationshipFilter{To: sprintID, Type: EdgeAssignedToSprint})
	if err != nil {
		return nil, err
	}

	type completion struct {
		hours  float64
		points int
		at     time.Time
		done   bool
	}
	var totalHours float64
	var totalPoints int
	completions := make([]completion, 0, len(rels))
	for _, rel := range rels {
		task, err := c.tasks.Get(ctx, rel.From)
		if err != nil {
			continue
		}
		var hours float64
		var points int
		if task.EstimatedHours != nil {
			hours = *task.EstimatedHours
		}
		if task.StoryPoints != nil {
			points = *task.StoryPoints
		}
		totalHours += hours
		totalPoints += points
		completions = append(completions, completion{
			hours:  hours,
			points: points,
			at:     task.UpdatedAt,
			done:   task.Status == "completed",
		})
	}

	start := truncateToDay(s.StartDate)
	end := truncateToDay(s.EndDate)
	totalDays := int(end.Sub(start).Hours() / 24)
	if totalDays < 1 {
		totalDays = 1
	}

	points := make([]BurndownPoint, 0, totalDays+1)
	for d := 0; d <= totalDays; d++ {
		day := start.AddDate(0, 0, d)

		idealFraction := 1.0 - float64(d)/float64(totalDays)
		ideal := BurndownPoint{
			Date:                 day,
			IdealRemainingHours:  totalHours * idealFraction,
			IdealRemainingPoints: float64(totalPoints) * idealFraction,
		}

		var completedHours float64
		var completedPoints int
		dayEnd := day.AddDate(0, 0, 1)
		for _, comp := range completions {
			if comp.done && comp.at.Before(dayEnd) {
				completedHours += comp.hours
				completedPoints += comp.points
			}
		}
		ideal.ActualRemainingHours = totalHours - completedHours
		ideal.ActualRemainingPoints = float64(totalPoints - completedPoints)
		points = append(points, ideal)
	}
	return points, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
