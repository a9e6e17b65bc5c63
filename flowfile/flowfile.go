// Package flowfile provides the in-memory unit-of-work model for the harness:
// flow files (id, attributes, content), named output relationships, and the
// shared input queue components pull from.
package flowfile

import (
	"maps"
	"time"
)

// CoreAttributeFilename is the attribute holding the logical file name of a
// flow file. Enqueue helpers default it from the source path when absent.
const CoreAttributeFilename = "filename"

// Relationship is a named output route a component can transfer a flow file to.
type Relationship struct {
	Name        string
	Description string
}

// NewRelationship creates a relationship with the given name.
func NewRelationship(name string) Relationship {
	return Relationship{Name: name}
}

// FlowFile is one unit of work moving through the harness. Flow files are
// mutated only through sessions, which return updated copies; the id and
// creation sequence are preserved across copies so queries stay stable.
type FlowFile struct {
	id         uint64
	attributes map[string]string
	data       []byte
	created    time.Time
}

// New creates a flow file with the given id. Callers obtain ids from the
// harness's shared generator so ordering stays monotonic per runner.
func New(id uint64) *FlowFile {
	return &FlowFile{
		id:         id,
		attributes: make(map[string]string),
		created:    time.Now(),
	}
}

// ID returns the flow file's identifier.
func (ff *FlowFile) ID() uint64 {
	return ff.id
}

// CreationTime returns when the flow file was created. Copies produced by
// attribute or content updates keep the original creation time.
func (ff *FlowFile) CreationTime() time.Time {
	return ff.created
}

// Attribute returns the value for a single attribute and whether it was set.
func (ff *FlowFile) Attribute(name string) (string, bool) {
	value, ok := ff.attributes[name]
	return value, ok
}

// Attributes returns a copy of the attribute map.
func (ff *FlowFile) Attributes() map[string]string {
	result := make(map[string]string, len(ff.attributes))
	maps.Copy(result, ff.attributes)
	return result
}

// Content returns a copy of the flow file's content.
func (ff *FlowFile) Content() []byte {
	result := make([]byte, len(ff.data))
	copy(result, ff.data)
	return result
}

// Size returns the content length in bytes.
func (ff *FlowFile) Size() int {
	return len(ff.data)
}

// WithAttributes returns a copy of the flow file with the given attributes
// merged over the existing set.
func (ff *FlowFile) WithAttributes(attrs map[string]string) *FlowFile {
	clone := ff.clone()
	maps.Copy(clone.attributes, attrs)
	return clone
}

// WithContent returns a copy of the flow file with the given content.
func (ff *FlowFile) WithContent(data []byte) *FlowFile {
	clone := ff.clone()
	clone.data = make([]byte, len(data))
	copy(clone.data, data)
	return clone
}

func (ff *FlowFile) clone() *FlowFile {
	clone := &FlowFile{
		id:         ff.id,
		attributes: make(map[string]string, len(ff.attributes)),
		data:       ff.data,
		created:    ff.created,
	}
	maps.Copy(clone.attributes, ff.attributes)
	return clone
}
