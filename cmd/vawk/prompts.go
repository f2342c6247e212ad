package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/vawk"
)

const (
	systemPromptFile    = "vawk.system.md"
	developerPromptFile = "vawk.developer.md"
	projectPromptFile   = "vawk.project.md"
	projectExampleFile  = "vawk.project.example.md"
)

// agentsFiles are looked up in the working directory, first match wins.
var agentsFiles = []string{"AGENTS.vawk.md", "AGENTS.md"}

// loadPrompts reads the prompt layers. The system prompt falls back to the
// built-in default; the other layers are optional. The project layer joins
// agent notes from cwd with project notes from dir.
func loadPrompts(dir, cwd string) (vawk.Prompts, error) {
	system, err := readOptional(filepath.Join(dir, systemPromptFile))
	if err != nil {
		return vawk.Prompts{}, err
	}
	if strings.TrimSpace(system) == "" {
		system = vawk.DefaultSystemPrompt
	}
	developer, err := readOptional(filepath.Join(dir, developerPromptFile))
	if err != nil {
		return vawk.Prompts{}, err
	}

	var agents string
	for _, name := range agentsFiles {
		agents, err = readOptional(filepath.Join(cwd, name))
		if err != nil {
			return vawk.Prompts{}, err
		}
		if agents != "" {
			break
		}
	}
	project, err := readOptional(filepath.Join(dir, projectPromptFile))
	if err != nil {
		return vawk.Prompts{}, err
	}
	if project == "" {
		if project, err = readOptional(filepath.Join(dir, projectExampleFile)); err != nil {
			return vawk.Prompts{}, err
		}
	}
	if agents != "" && project != "" {
		project = agents + vawk.ProjectNotesSeparator + project
	} else if agents != "" {
		project = agents
	}

	return vawk.Prompts{System: system, Developer: developer, Project: project}, nil
}

// readOptional returns the file content, or "" when it does not exist.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return string(data), nil
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("read prompt: %w", err)
	}
}
