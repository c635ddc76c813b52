package domain

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	StatusPending   JobStatus = "Pending"
	StatusRunning   JobStatus = "Running"
	StatusSucceeded JobStatus = "Succeeded"
	StatusFailed    JobStatus = "Failed"

	// StatusUnknown is reported for identifiers the store has never seen.
	StatusUnknown JobStatus = "Unknown"
)

// Terminal reports whether s is a final, immutable outcome.
func (s JobStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

type Job struct {
	ID string `json:"id"`

	Status JobStatus `json:"status"`

	InputPath string `json:"input_path"`
	Partition string `json:"partition"`
	Filename  string `json:"filename"`

	Result string `json:"result"`
	Error  string `json:"error"`

	// meta
	Attempts    int       `json:"attempts"`
	SubmittedAt time.Time `json:"submitted_at"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Segment is one timestamped piece of recognized speech, in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Line renders the segment as one transcript line, newline included.
func (s Segment) Line() string {
	return fmt.Sprintf("[%.2fs -> %.2fs] %s\n", s.Start, s.End, strings.TrimSpace(s.Text))
}

type SubmitResponse struct {
	Filename string `json:"filename"`
	JobID    string `json:"job_id"`
}

type StatusResponse struct {
	JobID       string     `json:"job_id"`
	Status      JobStatus  `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ContentResponse struct {
	Content string `json:"content"`
}
