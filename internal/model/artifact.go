package model

import "time"

// Regeneration preset constants (adjustment_type on the backend wire).
const (
	PresetIncreaseMotion   = "increase_motion"
	PresetSlowerPacing     = "slower_pacing"
	PresetEmphasizeTexture = "emphasize_texture"
	PresetLocalizeDialogue = "localize_dialogue"
	PresetOnlyChangeAudio  = "only_change_audio"
)

// Audio option constants
const (
	AudioTTS   = "TTS"
	AudioHuman = "Human voice"
	AudioNone  = "None"
)

// Motion intensity constants
const (
	MotionLight  = "Light"
	MotionMedium = "Medium"
	MotionHeavy  = "Heavy"
)

// ValidPreset reports whether s is a known regeneration preset.
func ValidPreset(s string) bool {
	switch s {
	case PresetIncreaseMotion, PresetSlowerPacing, PresetEmphasizeTexture,
		PresetLocalizeDialogue, PresetOnlyChangeAudio:
		return true
	}
	return false
}

// Artifact is one generated video prompt with its metadata and version
// history. History holds every previous value of CurrentPrompt, oldest
// first; CurrentPrompt is always the latest state, so the full
// chronological record is History followed by CurrentPrompt.
type Artifact struct {
	ID            string   `json:"id"`
	ProductName   string   `json:"product_name,omitempty"`
	CurrentPrompt string   `json:"current_prompt"`
	History       []string `json:"history"`
	Audit         string   `json:"audit,omitempty"` // JSON string from the backend
	Tradeoff      string   `json:"tradeoff,omitempty"`
	AVPlan        string   `json:"av_plan,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// NewArtifact creates an Artifact whose history is seeded with the
// initial prompt as its sole entry.
func NewArtifact(id, productName, prompt string) *Artifact {
	now := time.Now().UTC().Format(time.RFC3339)
	return &Artifact{
		ID:            id,
		ProductName:   productName,
		CurrentPrompt: prompt,
		History:       []string{prompt},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Record returns the full chronological prompt record: every historical
// version followed by the current prompt.
func (a *Artifact) Record() []string {
	out := make([]string, 0, len(a.History)+1)
	out = append(out, a.History...)
	return append(out, a.CurrentPrompt)
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	c := *a
	c.History = append([]string(nil), a.History...)
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	return &c
}
