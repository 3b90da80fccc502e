package models

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ScoringJob is a queued or batched scoring request. The file comes either
// inline in Payload (base64 in JSON) or from Path on the worker's disk.
type ScoringJob struct {
	JobID      string `json:"job_id"`
	Filename   string `json:"filename,omitempty"`
	Path       string `json:"path,omitempty"`
	Payload    []byte `json:"payload,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Safeguards *bool  `json:"safeguards,omitempty"`
	Explain    *bool  `json:"explain,omitempty"`
}

func (j ScoringJob) Validate() error {
	if j.Path == "" && len(j.Payload) == 0 {
		return errors.New("job needs a path or a payload")
	}
	if j.Path == "" && j.Filename == "" {
		return errors.New("inline payload needs a filename")
	}
	if j.Mode != "" {
		if _, err := ParseDeploymentMode(j.Mode); err != nil {
			return err
		}
	}
	return nil
}

// Request resolves the job against defaults, reading Path when no payload
// was sent.
func (j ScoringJob) Request(defaults ScoringOptions) (ScoringRequest, error) {
	if err := j.Validate(); err != nil {
		return ScoringRequest{}, err
	}

	opts := defaults
	if j.Mode != "" {
		opts.Mode, _ = ParseDeploymentMode(j.Mode)
	}
	if j.Safeguards != nil {
		opts.Safeguards = *j.Safeguards
	}
	if j.Explain != nil {
		opts.ShowExplanations = *j.Explain
	}

	filename := j.Filename
	if filename == "" {
		filename = filepath.Base(j.Path)
	}

	data := j.Payload
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(j.Path)
		if err != nil {
			return ScoringRequest{}, fmt.Errorf("failed to read %s: %w", j.Path, err)
		}
	}

	return ScoringRequest{
		RequestID: j.JobID,
		Filename:  filename,
		Data:      data,
		Options:   opts,
	}, nil
}
