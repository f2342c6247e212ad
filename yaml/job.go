package yaml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/vawk"
	"gopkg.in/yaml.v3"
)

const (
	ScriptFile = "script.awk"
	SpecFile   = "spec.yaml"
)

// JobSpec is the spec.yaml document stored next to a promoted script.
type JobSpec struct {
	ID     string    `yaml:"id"`
	Source JobSource `yaml:"source"`
	Plan   string    `yaml:"plan"`
	Tests  []string  `yaml:"tests"`
}

// JobSource records where a promoted script came from.
type JobSource struct {
	SessionID   string `yaml:"sessionId"`
	TurnIdx     int    `yaml:"turnIdx"`
	PromotedAt  string `yaml:"promotedAt"`
	ProgramHash string `yaml:"programHash"`
}

// NewJobSpec converts a promoted job into its spec document.
func NewJobSpec(job vawk.Job) JobSpec {
	tests := job.Tests
	if tests == nil {
		tests = []string{}
	}
	return JobSpec{
		ID: job.Name,
		Source: JobSource{
			SessionID:   job.SessionID,
			TurnIdx:     job.TurnIdx,
			PromotedAt:  job.PromotedAt.UTC().Format(time.RFC3339),
			ProgramHash: job.ProgramHash,
		},
		Plan:  job.Plan,
		Tests: tests,
	}
}

// SaveJob writes job into root/<job.Name> and returns that directory. An
// existing job directory is never overwritten.
func SaveJob(root string, job vawk.Job) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create jobs dir: %w", err)
	}
	dir := filepath.Join(root, job.Name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("job directory %s: %w", dir, vawk.ErrExists)
		}
		return "", fmt.Errorf("create job dir: %w", err)
	}

	script := job.Script
	if script != "" && script[len(script)-1] != '\n' {
		script += "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, ScriptFile), []byte(script), 0o644); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}
	data, err := yaml.Marshal(NewJobSpec(job))
	if err != nil {
		return "", fmt.Errorf("marshal job spec: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, SpecFile), data, 0o644); err != nil {
		return "", fmt.Errorf("write job spec: %w", err)
	}
	return dir, nil
}

// LoadJobSpec reads the spec.yaml of the job in dir.
func LoadJobSpec(dir string) (JobSpec, error) {
	data, err := os.ReadFile(filepath.Join(dir, SpecFile))
	if err != nil {
		return JobSpec{}, fmt.Errorf("read job spec: %w", err)
	}
	var spec JobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return JobSpec{}, fmt.Errorf("parse job spec: %w", err)
	}
	return spec, nil
}
