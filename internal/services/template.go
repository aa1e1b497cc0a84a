package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/abrezinsky/rollcall/internal/forms"
	"github.com/abrezinsky/rollcall/internal/logger"
	"github.com/abrezinsky/rollcall/internal/repository"
)

// TemplateService serves the built-in catalog and organizer templates
type TemplateService struct {
	log  logger.Logger
	repo repository.TemplateRepository
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(log logger.Logger, repo repository.TemplateRepository) *TemplateService {
	return &TemplateService{log: log, repo: repo}
}

// ListTemplates returns the system catalog followed by custom templates
func (s *TemplateService) ListTemplates(ctx context.Context) ([]forms.Template, error) {
	custom, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return append(forms.Catalog(), custom...), nil
}

// GetTemplate looks a template up in the catalog, then in storage
func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*forms.Template, error) {
	if t, ok := forms.CatalogTemplate(id); ok {
		return &t, nil
	}
	t, err := s.repo.GetTemplate(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrTemplateNotFound
	}
	return t, err
}

func normalizeTemplate(t *forms.Template) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = forms.ParseCategory(string(t.Category))
	t.System = false
	if err := t.Validate(); err != nil {
		return &DefinitionError{Err: err}
	}
	return nil
}

// CreateTemplate stores a custom template. An empty id is generated.
func (s *TemplateService) CreateTemplate(ctx context.Context, t forms.Template) (*forms.Template, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := forms.CatalogTemplate(t.ID); ok {
		return nil, ErrTemplateExists
	}
	if err := normalizeTemplate(&t); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTemplate(ctx, &t); err != nil {
		if err == repository.ErrDuplicateID {
			return nil, ErrTemplateExists
		}
		return nil, err
	}
	s.log.Info("Created template", "template_id", t.ID, "name", t.Name, "fields", len(t.Fields))
	return &t, nil
}

// UpdateTemplate replaces a custom template. Events already created from it
// keep their own copy of the fields.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, t forms.Template) error {
	if _, ok := forms.CatalogTemplate(id); ok {
		return ErrSystemTemplate
	}
	t.ID = id
	if err := normalizeTemplate(&t); err != nil {
		return err
	}

	err := s.repo.UpdateTemplate(ctx, &t)
	if err == repository.ErrNotFound {
		return ErrTemplateNotFound
	}
	return err
}

// DeleteTemplate removes a custom template
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if _, ok := forms.CatalogTemplate(id); ok {
		return ErrSystemTemplate
	}
	err := s.repo.DeleteTemplate(ctx, id)
	if err == repository.ErrNotFound {
		return ErrTemplateNotFound
	}
	return err
}
