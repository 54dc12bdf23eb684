package entities

// DocumentKind names one of the JSON documents the admin UI persists.
type DocumentKind string

const (
	DocumentCatalog DocumentKind = "catalog"
	DocumentConfig  DocumentKind = "config"
)

// SaveResult describes a persisted document.
type SaveResult struct {
	Kind   DocumentKind `json:"kind"`
	Client string       `json:"client,omitempty"`
	Path   string       `json:"path"` // relative to the web root, slash separated
	Count  int          `json:"count,omitempty"`
}
