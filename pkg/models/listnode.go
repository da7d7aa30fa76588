// Package models contains the listing document types shared across packages.
package models

import "time"

// SizeUnknown marks a file whose size has not been discovered yet.
// The listing document may omit sizes entirely; they are probed on
// first access.
const SizeUnknown int64 = -1

// ListNode is one entry of the listing document: a file or directory
// in the remote tree. Directories carry their children in the order
// the listing was generated.
type ListNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Size     int64       `json:"size"`
	ModTime  time.Time   `json:"mtime"`
	IsDir    bool        `json:"is_dir"`
	Children []*ListNode `json:"children,omitempty"`
}

// ListingResponse is the wire envelope for the listing document.
type ListingResponse struct {
	Root      *ListNode `json:"root"`
	Generated time.Time `json:"generated"`
}
