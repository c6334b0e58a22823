package domain

import "time"

// JobKind identifies the kind of background work.
type JobKind string

// Job kinds.
const (
	JobSync     JobKind = "sync"
	JobDownload JobKind = "download"
)

// Job is a unit of queued background work.
type Job struct {
	Kind         JobKind  `json:"kind"`
	SyncID       string   `json:"syncId,omitempty"`
	ConnectionID string   `json:"connectionId"`
	UserID       string   `json:"userId,omitempty"`
	Token        string   `json:"token,omitempty"`
	DocumentIDs  []string `json:"documentIds,omitempty"`
	DocumentID   string   `json:"documentId,omitempty"`
}

// ID returns the key the step ledger uses for this job.
func (j Job) ID() string {
	switch j.Kind {
	case JobSync:
		return "sync:" + j.SyncID
	default:
		return string(j.Kind) + ":" + j.ConnectionID + ":" + j.DocumentID
	}
}

// StepRecord is the memoized outcome of one named step of a job.
type StepRecord struct {
	JobID       string    `json:"jobId" bson:"jobId"`
	StepID      string    `json:"stepId" bson:"stepId"`
	Output      []byte    `json:"output" bson:"output"`
	CompletedAt time.Time `json:"completedAt" bson:"completedAt"`
}
