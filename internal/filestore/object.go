package filestore

import (
	"io"
	"path"
	"strings"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64 // -1 if unknown
	ContentType  string
	ETag         string
	LastModified time.Time

	// IsDir marks a common prefix rather than a stored object.
	IsDir bool
}

// IsDeclaration reports whether the object looks like a YAML declaration
// document.
func (o ObjectInfo) IsDeclaration() bool {
	if o.IsDir {
		return false
	}
	switch strings.ToLower(path.Ext(o.Key)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Object is a streaming handle to an object's content.
type Object interface {
	io.ReadCloser
	Info() *ObjectInfo
}

// ListOptions filters ListObjects.
type ListOptions struct {
	Prefix string

	// Recursive lists everything under Prefix. Otherwise common prefixes
	// come back as IsDir entries.
	Recursive bool

	// Limit caps the result count. 0 means no cap.
	Limit int
}
