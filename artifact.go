// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"maps"
)

// Artifact is an output produced by an agent for a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitzero"`
	Description string         `json:"description,omitzero"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitzero"`
}

// NewTextArtifact returns an artifact holding a single text part.
func NewTextArtifact(name, text string) *Artifact {
	return &Artifact{
		ArtifactID: NewID(),
		Name:       name,
		Parts:      []Part{NewTextPart(text)},
	}
}

// Validate checks the artifact has an id and valid parts.
func (a *Artifact) Validate() error {
	if a == nil {
		return errors.New("artifact is required")
	}
	if a.ArtifactID == "" {
		return errors.New("artifact id is required")
	}
	if len(a.Parts) == 0 {
		return errors.New("artifact must have at least one part")
	}
	for _, p := range a.Parts {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}
	c := *a
	c.Parts = cloneParts(a.Parts)
	c.Metadata = maps.Clone(a.Metadata)
	return &c
}

// ApplyArtifactUpdate merges the artifact carried by ev into t. When ev.Append is set
// and an artifact with the same id exists, the parts are appended to it; otherwise the
// artifact replaces any artifact with the same id or is added at the end.
func (t *Task) ApplyArtifactUpdate(ev *TaskArtifactUpdateEvent) error {
	if err := ev.Artifact.Validate(); err != nil {
		return err
	}
	for i, existing := range t.Artifacts {
		if existing.ArtifactID != ev.Artifact.ArtifactID {
			continue
		}
		if ev.Append {
			existing.Parts = append(existing.Parts, cloneParts(ev.Artifact.Parts)...)
			return nil
		}
		t.Artifacts[i] = ev.Artifact.Clone()
		return nil
	}
	t.Artifacts = append(t.Artifacts, ev.Artifact.Clone())
	return nil
}
