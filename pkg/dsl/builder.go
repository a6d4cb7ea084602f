package dsl

import (
	"fmt"

	"github.com/aretw0/tutor/internal/dto"
	"github.com/aretw0/tutor/pkg/adapters/memory"
)

// Builder manages the construction of a set of pages.
type Builder struct {
	pages []*PageBuilder
	index map[string]*PageBuilder
}

// New creates a new page builder.
func New() *Builder {
	return &Builder{index: make(map[string]*PageBuilder)}
}

// Page starts a page. If the page already exists, it returns the existing builder.
func (b *Builder) Page(id string) *PageBuilder {
	if pb, ok := b.index[id]; ok {
		return pb
	}
	pb := &PageBuilder{page: dto.PageMetadata{ID: id}}
	b.pages = append(b.pages, pb)
	b.index[id] = pb
	return pb
}

// Pages returns the authored pages in declaration order.
func (b *Builder) Pages() []dto.PageMetadata {
	out := make([]dto.PageMetadata, 0, len(b.pages))
	for _, pb := range b.pages {
		out = append(out, pb.Build())
	}
	return out
}

// Build compiles the pages into a memory Loader.
func (b *Builder) Build() (*memory.Loader, error) {
	loader, err := memory.NewFromPages(b.Pages()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// PageBuilder provides a fluent API for configuring a page.
type PageBuilder struct {
	page  dto.PageMetadata
	steps []*StepBuilder
}

// Title sets the page title.
func (p *PageBuilder) Title(title string) *PageBuilder {
	p.page.Title = title
	return p
}

// Final sets the text shown once the last step passes.
func (p *PageBuilder) Final(text string) *PageBuilder {
	p.page.FinalText = text
	return p
}

// Step appends a step. Steps run in the order they are added.
func (p *PageBuilder) Step(id string) *StepBuilder {
	sb := &StepBuilder{step: dto.StepMetadata{ID: id}}
	p.steps = append(p.steps, sb)
	return sb
}

// Build returns the authored page.
func (p *PageBuilder) Build() dto.PageMetadata {
	page := p.page
	page.Steps = make([]dto.StepMetadata, 0, len(p.steps))
	for _, sb := range p.steps {
		page.Steps = append(page.Steps, sb.Build())
	}
	return page
}
