// Package logging provides a chainable structured-field builder used on
// top of logrus across the pipeline agents.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Fields is a chainable builder over logrus.Fields.
type Fields logrus.Fields

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component tags the emitting component (e.g. "sanitizer", "detective").
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation tags the operation in progress (e.g. "sanitize", "apply_patch").
func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

// Resource tags the resource type/name a log line is about. The name is
// omitted when empty.
func (f Fields) Resource(kind, name string) Fields {
	f["resource_type"] = kind
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

// Duration records an elapsed duration in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// IncidentID tags the incident the log line belongs to.
func (f Fields) IncidentID(id string) Fields {
	f["incident_id"] = id
	return f
}

// Error attaches an error's message.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Logrus converts to the logrus.Fields type for use with *logrus.Entry.
func (f Fields) Logrus() logrus.Fields {
	return logrus.Fields(f)
}
