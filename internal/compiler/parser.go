package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/domain"
)

// Parser is responsible for converting raw bytes into a compiled Page.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes a page written in YAML or JSON and compiles it.
// JSON is accepted because it is valid YAML.
func (p *Parser) Parse(data []byte) (*domain.Page, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: failed to parse page: %v", domain.ErrAuthoring, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty page document", domain.ErrAuthoring)
	}
	meta, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return Compile(meta)
}

// Decode maps a generic document onto the authored page structure.
// Unknown keys are rejected so typos in lessons surface at load time.
func Decode(raw map[string]any) (*dto.PageMetadata, error) {
	var meta dto.PageMetadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &meta,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode page: %v", domain.ErrAuthoring, err)
	}
	return &meta, nil
}
