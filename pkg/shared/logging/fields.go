// Package logging provides a structured-field vocabulary (Fields and its
// per-component constructors) and the zap logger constructor New. The
// core's own log lines build their zap fields directly and do not go
// through Fields.
package logging

import "time"

// Fields is a map-backed builder over the structured fields attached to a
// log line; the order in which fields were added is not preserved.
type Fields map[string]interface{}

func NewFields() Fields {
	return Fields{}
}

func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

func (f Fields) Operation(op string) Fields {
	f["operation"] = op
	return f
}

func (f Fields) Resource(resourceType, name string) Fields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

func (f Fields) UserID(id string) Fields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f Fields) RequestID(id string) Fields {
	f["request_id"] = id
	return f
}

func (f Fields) TraceID(id string) Fields {
	f["trace_id"] = id
	return f
}

func (f Fields) StatusCode(code int) Fields {
	f["status_code"] = code
	return f
}

func (f Fields) Method(method string) Fields {
	f["method"] = method
	return f
}

func (f Fields) URL(url string) Fields {
	f["url"] = url
	return f
}

func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

func (f Fields) Size(bytes int64) Fields {
	f["size_bytes"] = bytes
	return f
}

func (f Fields) Version(v string) Fields {
	f["version"] = v
	return f
}

func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// ToLogrus exposes Fields as a bare map, the shape most structured-logging
// libraries (logrus, zap's SugaredLogger.With) accept directly.
func (f Fields) ToLogrus() map[string]interface{} {
	return map[string]interface{}(f)
}

// DatabaseFields is the standard field set for a relational-store
// operation (internal/database, pkg/audit).
func DatabaseFields(operation, table string) Fields {
	return NewFields().Component("database").Operation(operation).Resource("table", table)
}

func HTTPFields(method, url string, statusCode int) Fields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

// WorkItemFields is the standard field set for a C3 work-item store
// operation.
func WorkItemFields(operation, workItemID string) Fields {
	return NewFields().Component("workitem").Operation(operation).Resource("workitem", workItemID)
}

// WorkflowFields is the standard field set for a workflow operation.
func WorkflowFields(operation, workflowName string) Fields {
	return NewFields().Component("workflow").Operation(operation).Resource("workflow", workflowName)
}

// GraphFields is the standard field set for a C2 graph executor call.
func GraphFields(operation, label string) Fields {
	return NewFields().Component("graph").Operation(operation).Resource(label, "")
}

// SchedulerFields is the standard field set for a C6 solve.
func SchedulerFields(projectID string) Fields {
	return NewFields().Component("scheduler").Resource("project", projectID)
}

func AIFields(operation, model string) Fields {
	return NewFields().Component("ai").Operation(operation).Custom("model", model)
}

func MetricsFields(operation, metricName string, value float64) Fields {
	return NewFields().Component("metrics").Operation(operation).Custom("metric_name", metricName).Custom("value", value)
}

func SecurityFields(operation, subject string) Fields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

func PerformanceFields(operation string, duration time.Duration, success bool) Fields {
	return NewFields().Component("performance").Operation(operation).Duration(duration).Custom("success", success)
}
