package prompt

import (
	"fmt"

	"story-server/internal/models"
)

const (
	// PreviousSceneKey is the request field carrying the scene being continued.
	PreviousSceneKey = "previous_scene"
	// PreviousScenePromptKey is filled from the template's continuation fragment.
	PreviousScenePromptKey = "previous_scene_prompt"
)

// Messages is an assembled system/user message pair.
type Messages struct {
	System string
	User   string
}

// Assemble renders both templates against the request payload.
// The payload is not modified.
func Assemble(tmpl *models.PromptTemplate, payload map[string]interface{}) (Messages, error) {
	vars, err := ContinuationVars(tmpl, payload)
	if err != nil {
		return Messages{}, err
	}

	system, err := Render(tmpl.System, vars)
	if err != nil {
		return Messages{}, fmt.Errorf("system template: %w", err)
	}
	user, err := Render(tmpl.User, vars)
	if err != nil {
		return Messages{}, fmt.Errorf("user template: %w", err)
	}
	return Messages{System: system, User: user}, nil
}

// ContinuationVars copies payload and sets the continuation fields.
// Any previous_scene other than the empty string counts as a previous scene,
// whatever its JSON type. It is kept only when the template has a
// continuation fragment; otherwise both fields become empty.
func ContinuationVars(tmpl *models.PromptTemplate, payload map[string]interface{}) (map[string]interface{}, error) {
	raw, ok := payload[PreviousSceneKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrMissingField, PreviousSceneKey)
	}

	vars := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		vars[k] = v
	}

	if raw != "" && tmpl.HasContinuation() {
		vars[PreviousScenePromptKey] = *tmpl.PreviousScenePrompt
	} else {
		vars[PreviousScenePromptKey] = ""
		vars[PreviousSceneKey] = ""
	}
	return vars, nil
}
