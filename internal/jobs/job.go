package jobs

import (
	"maps"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ArtifactKind names one generated output file.
type ArtifactKind string

const (
	ArtifactSubtitle ArtifactKind = "subtitle"
	ArtifactText     ArtifactKind = "text"
)

// ArtifactForFormat maps a download format (srt, txt) to the artifact kind.
func ArtifactForFormat(format string) (ArtifactKind, bool) {
	switch format {
	case "srt":
		return ArtifactSubtitle, true
	case "txt":
		return ArtifactText, true
	default:
		return "", false
	}
}

// Job is one transcription request and its evolving state.
type Job struct {
	ID           string `json:"job_id"`
	SourcePath   string `json:"filename"`
	OriginalName string `json:"original_name,omitempty"`
	MediaType    string `json:"media_type,omitempty"`
	Engine       string `json:"engine"`
	Language     string `json:"language"`
	Model        string `json:"model,omitempty"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Phase    string `json:"phase,omitempty"`

	CreatedAt  time.Time  `json:"start_time"`
	FinishedAt *time.Time `json:"end_time"`

	// Filled when failed
	Error     *string `json:"error_message"`
	Cancelled bool    `json:"cancelled,omitempty"`

	// Filled when completed
	Outputs map[ArtifactKind]string `json:"output_files"`
}

// Files returns every on-disk path owned by the job: outputs first, then the source.
func (j Job) Files() []string {
	out := make([]string, 0, len(j.Outputs)+1)
	for _, kind := range []ArtifactKind{ArtifactSubtitle, ArtifactText} {
		if p, ok := j.Outputs[kind]; ok && p != "" {
			out = append(out, p)
		}
	}
	if j.SourcePath != "" {
		out = append(out, j.SourcePath)
	}
	return out
}

// clone returns a copy that shares no mutable state with j.
func (j Job) clone() Job {
	c := j
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	c.Outputs = maps.Clone(j.Outputs)
	if c.Outputs == nil {
		c.Outputs = map[ArtifactKind]string{}
	}
	return c
}

// canTransition enforces pending -> processing -> completed|failed.
func canTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}
