package service

import (
	"encoding/json"
	"fmt"

	"github.com/nebari-dev/refstore/internal/models"
	"github.com/nebari-dev/refstore/internal/ref"
)

const (
	maxSlugLen        = 64
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

// Each validator reports the first failing field only.

func validateSlug(field, slug string) error {
	switch {
	case slug == "":
		return &ValidationError{Message: field + " is required"}
	case len(slug) > maxSlugLen:
		return &ValidationError{Message: fmt.Sprintf("%s must be at most %d characters", field, maxSlugLen)}
	case !ref.ValidSlug(slug):
		return &ValidationError{Message: field + " must contain only lowercase letters, digits and hyphens"}
	}
	return nil
}

func validateName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Message: "name is required"}
	case len(name) > maxNameLen:
		return &ValidationError{Message: fmt.Sprintf("name must be at most %d characters", maxNameLen)}
	}
	return nil
}

func validateDescription(desc string) error {
	if len(desc) > maxDescriptionLen {
		return &ValidationError{Message: fmt.Sprintf("description must be at most %d characters", maxDescriptionLen)}
	}
	return nil
}

func validateContent(content string) error {
	if content == "" {
		return &ValidationError{Message: "content is required"}
	}
	return nil
}

func validateStatus(status string) (models.VersionStatus, error) {
	st, ok := models.ParseStatus(status)
	if !ok {
		return "", &ValidationError{Message: "status must be one of draft, active, stable, deprecated"}
	}
	return st, nil
}

func validateBlockType(t string) (models.BlockType, error) {
	switch bt := models.BlockType(t); bt {
	case "":
		return models.BlockTypeInstruction, nil
	case models.BlockTypeSystem, models.BlockTypeInstruction, models.BlockTypeContext,
		models.BlockTypeExample, models.BlockTypeOutput:
		return bt, nil
	}
	return "", &ValidationError{Message: "type must be one of system, instruction, context, example, output"}
}

func validateConfig(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return &ValidationError{Message: "config must be a JSON object"}
	}
	return nil
}

func validatePosition(pos *int) error {
	if pos != nil && *pos < 0 {
		return &ValidationError{Message: "position must be >= 0"}
	}
	return nil
}
