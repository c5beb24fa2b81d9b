// Package catalog implements the product catalog management flows on top of
// the repositories: create-only product creation, edits with audited stock
// adjustments, and category creation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/alata/internal/model"
	"github.com/roach88/alata/internal/repo"
	"github.com/roach88/alata/internal/store"
)

var (
	// ErrProductExists is returned by Create when the code is already taken,
	// compared without regard to case.
	ErrProductExists = errors.New("product code already exists")

	// ErrUnknownCategory is returned when a product names a category that
	// is not in the category list.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrCategoryExists is returned by AddCategory for a duplicate name.
	ErrCategoryExists = errors.New("category already exists")
)

// Service runs catalog flows against a set of repositories.
type Service struct {
	repos  *repo.Repos
	logger *slog.Logger
}

// New returns a catalog service. A nil logger uses slog.Default().
func New(repos *repo.Repos, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, logger: logger}
}

// ExistsByCode reports whether any product code equals code ignoring case.
func (s *Service) ExistsByCode(ctx context.Context, code string) (bool, error) {
	products, err := s.repos.Products.List(ctx)
	if err != nil {
		return false, err
	}
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(code))
	for _, p := range products {
		if fold.String(p.Code) == want {
			return true, nil
		}
	}
	return false, nil
}

// Create adds a new product. Unlike Products.Save it never overwrites: the
// code must be new, every descriptive field is required, the price must be
// positive, and the category must exist.
func (s *Service) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p = normalize(p)
	if err := requireFields(p); err != nil {
		return model.Product{}, err
	}
	if p.UnitPrice <= 0 {
		return model.Product{}, fmt.Errorf("%w: product %s: price must be positive", model.ErrInvalidRecord, p.Code)
	}

	exists, err := s.ExistsByCode(ctx, p.Code)
	if err != nil {
		return model.Product{}, fmt.Errorf("create product %s: %w", p.Code, err)
	}
	if exists {
		return model.Product{}, fmt.Errorf("create product %s: %w", p.Code, ErrProductExists)
	}
	if err := s.checkCategory(ctx, p.Category); err != nil {
		return model.Product{}, fmt.Errorf("create product %s: %w", p.Code, err)
	}

	if err := s.repos.Products.Save(ctx, p); err != nil {
		return model.Product{}, err
	}
	s.logger.Info("product created", "code", p.Code, "category", p.Category)
	return p, nil
}

// Update replaces the descriptive fields of an existing product. A changed
// stock level goes through UpdateStock as an adjustment so it is audited.
// Both writes commit together.
func (s *Service) Update(ctx context.Context, p model.Product) (model.Product, error) {
	p = normalize(p)
	if err := requireFields(p); err != nil {
		return model.Product{}, err
	}
	if err := s.checkCategory(ctx, p.Category); err != nil {
		return model.Product{}, fmt.Errorf("update product %s: %w", p.Code, err)
	}

	var updated model.Product
	err := s.repos.Atomic(ctx, func(tx *repo.Repos) error {
		current, found, err := tx.Products.Get(ctx, p.Code)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: %s", repo.ErrProductNotFound, p.Code)
		}

		target := p.StockLevel
		p.StockLevel = current.StockLevel
		if err := tx.Products.Save(ctx, p); err != nil {
			return err
		}
		updated = p
		if target == current.StockLevel {
			return nil
		}
		updated, _, err = tx.Products.UpdateStock(ctx, p.Code, target, model.LogAdjustment, "Stock adjusted")
		return err
	})
	if err != nil {
		return model.Product{}, fmt.Errorf("update product %s: %w", p.Code, err)
	}
	return updated, nil
}

// ListByStatus returns products whose stock status equals status.
func (s *Service) ListByStatus(ctx context.Context, status model.StockStatus) ([]model.Product, error) {
	products, err := s.repos.Products.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.StockStatus() == status {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddCategory creates a category with a fresh id.
func (s *Service) AddCategory(ctx context.Context, name string) (model.Category, error) {
	c, err := s.repos.Categories.Save(ctx, model.Category{Name: strings.TrimSpace(name)})
	if store.IsDuplicateKey(err) {
		return model.Category{}, fmt.Errorf("add category %q: %w", name, ErrCategoryExists)
	}
	if err != nil {
		return model.Category{}, err
	}
	s.logger.Info("category created", "id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) checkCategory(ctx context.Context, name string) error {
	_, found, err := s.repos.Categories.FindByName(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return nil
}

func normalize(p model.Product) model.Product {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Unit = strings.TrimSpace(p.Unit)
	return p
}

func requireFields(p model.Product) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"code", p.Code}, {"name", p.Name}, {"category", p.Category}, {"unit", p.Unit},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", model.ErrInvalidRecord, strings.Join(missing, ", "))
	}
	return p.Validate()
}
