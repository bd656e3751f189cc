package domain

import "encoding/json"

// Project is the subset of a remote project entity this system reads and writes.
// Annotations holds every annotation other than the status field and is written
// back unchanged on update.
type Project struct {
	ID          string
	Name        string
	Etag        string
	Status      string
	Annotations map[string]json.RawMessage
}

// Candidate is a project selected for promotion together with its qualifying file count
type Candidate struct {
	ProjectID string
	Count     int
}
