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

// Package metrics exposes the Prometheus collectors the core records
// against: work-item mutations, scheduler solves, LLM extraction calls,
// graph executor calls, and inbound HTTP traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkItemsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "work_items_processed_total",
		Help: "Total number of work-item mutations processed.",
	})

	WorkItemOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_item_operations_total",
		Help: "Total number of work-item store operations, by operation.",
	}, []string{"operation"})

	WorkItemOperationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "work_item_operation_duration_seconds",
		Help:    "Duration of work-item store operations.",
		Buckets: prometheus.DefBuckets,
	})

	SchedulerSolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Duration of scheduler solve attempts.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	WorkItemsFilteredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_items_filtered_total",
		Help: "Total number of work items excluded by a search/filter pass.",
	}, []string{"filter"})

	WorkItemOperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "work_item_operation_errors_total",
		Help: "Total number of work-item operation failures, by operation and error type.",
	}, []string{"operation", "error_type"})

	LLMAPICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_api_calls_total",
		Help: "Total number of calls made to the LLM extraction provider.",
	}, []string{"provider"})

	LLMAPIErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_api_errors_total",
		Help: "Total number of LLM extraction provider call failures.",
	}, []string{"provider", "error_type"})

	GraphAPICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "graph_api_calls_total",
		Help: "Total number of graph executor calls, by operation.",
	}, []string{"operation"})

	EmailThreadsAwaitingReplyTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "email_threads_awaiting_reply_total",
		Help: "Number of email correspondence threads currently awaiting a reply.",
	})

	ConcurrentSchedulerSolvesRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "concurrent_scheduler_solves_running",
		Help: "Number of scheduler solves currently executing.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests served, by outcome.",
	}, []string{"status"})
)

func RecordWorkItemProcessed() {
	WorkItemsProcessedTotal.Inc()
}

func RecordWorkItemOperation(operation string, duration time.Duration) {
	WorkItemOperationsTotal.WithLabelValues(operation).Inc()
	WorkItemOperationDuration.Observe(duration.Seconds())
}

func RecordSchedulerSolve(duration time.Duration) {
	SchedulerSolveDuration.Observe(duration.Seconds())
}

func RecordWorkItemFiltered(filter string) {
	WorkItemsFilteredTotal.WithLabelValues(filter).Inc()
}

func RecordWorkItemOperationError(operation, errorType string) {
	WorkItemOperationErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

func RecordLLMAPICall(provider string) {
	LLMAPICallsTotal.WithLabelValues(provider).Inc()
}

func RecordLLMAPIError(provider, errorType string) {
	LLMAPIErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

func RecordGraphAPICall(operation string) {
	GraphAPICallsTotal.WithLabelValues(operation).Inc()
}

func SetEmailThreadsAwaitingReply(n float64) {
	EmailThreadsAwaitingReplyTotal.Set(n)
}

func IncrementConcurrentSolves() {
	ConcurrentSchedulerSolvesRunning.Inc()
}

func DecrementConcurrentSolves() {
	ConcurrentSchedulerSolvesRunning.Dec()
}

func RecordHTTPRequest(status string) {
	HTTPRequestsTotal.WithLabelValues(status).Inc()
}

// Timer measures an operation's duration and records it against the
// relevant histogram when the caller is done.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

func (t *Timer) RecordWorkItemOperation(operation string) {
	RecordWorkItemOperation(operation, t.Elapsed())
}

func (t *Timer) RecordSchedulerSolve() {
	RecordSchedulerSolve(t.Elapsed())
}
