// Package catalog maps video ids to stored objects. Records are written
// once, when an upload is finalized, and read by the streaming gateway and
// the list query.
package catalog
