package domain

import "time"

// FileResult is the outcome of extracting one scan file: either a cube or
// the error that excluded the file from the yearly sum.
type FileResult struct {
	Path string
	Cube *Cube
	Err  error
}

// OK reports whether the file produced a histogram.
func (r FileResult) OK() bool { return r.Err == nil && r.Cube != nil }

// RunSummary describes one terminal controller invocation. It is logged and
// optionally published downstream.
type RunSummary struct {
	RunID           string    `json:"run_id"`
	Year            int       `json:"year"`
	State           string    `json:"state"`
	Reason          string    `json:"reason,omitempty"`
	Geometry        string    `json:"geometry,omitempty"`
	FilesDiscovered int       `json:"files_discovered"`
	FilesProcessed  int       `json:"files_processed"`
	FilesFailed     int       `json:"files_failed"`
	OutputPath      string    `json:"output_path"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}
