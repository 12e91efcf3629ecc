package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campuswork/marketplace/internal/model"
	"github.com/campuswork/marketplace/internal/repository"
)

// DefaultServiceImage is used when a service is created without a picture.
const DefaultServiceImage = "https://picsum.photos/400/300?random=99"

// ServiceInput is the create and edit form for a catalog entry. On edit,
// zero values keep the current value.
type ServiceInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	ImageURL    string `json:"imageUrl"`
}

// Catalog owns the services collection.
type Catalog struct {
	state State
	log   *zap.Logger
}

// NewCatalog wires a Catalog to the application state.
func NewCatalog(state State, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{state: state, log: log}
}

// List returns services matching query in the title or description and
// filed under category. An empty category or "All" matches any.
func (c *Catalog) List(ctx context.Context, query, category string) ([]model.Service, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	category = strings.TrimSpace(category)
	if category != "" && category != model.CategoryAll && !model.ValidCategory(category) {
		return nil, invalid("category", "unknown category")
	}
	out := []model.Service{}
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, s := range snap.Services {
			if category != "" && category != model.CategoryAll && s.Category != category {
				continue
			}
			if query != "" &&
				!strings.Contains(strings.ToLower(s.Title), query) &&
				!strings.Contains(strings.ToLower(s.Description), query) {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	return out, err
}

// ListByFreelancer returns the services a freelancer offers.
func (c *Catalog) ListByFreelancer(ctx context.Context, freelancerID string) ([]model.Service, error) {
	out := []model.Service{}
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		for _, s := range snap.Services {
			if s.FreelancerID == freelancerID {
				out = append(out, s)
			}
		}
		return nil
	})
	return out, err
}

// Get returns the service with id.
func (c *Catalog) Get(ctx context.Context, id string) (model.Service, error) {
	var out model.Service
	err := c.state.View(ctx, func(snap *repository.Snapshot) error {
		s := snap.Service(id)
		if s == nil {
			return fmt.Errorf("service %s: %w", id, ErrNotFound)
		}
		out = *s
		return nil
	})
	return out, err
}

func validateServiceInput(in ServiceInput) error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title", "is required")
	case !model.ValidCategory(in.Category):
		return invalid("category", "must be one of "+strings.Join(model.Categories, ", "))
	case in.Price <= 0:
		return invalid("price", "must be greater than zero")
	}
	return nil
}

// Create publishes a new service for a freelancer.
func (c *Catalog) Create(ctx context.Context, freelancerID string, in ServiceInput) (model.Service, error) {
	if err := validateServiceInput(in); err != nil {
		return model.Service{}, err
	}
	var out model.Service
	err := c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		u := snap.User(freelancerID)
		if u == nil {
			return fmt.Errorf("user %s: %w", freelancerID, ErrNotFound)
		}
		if !u.Role.CanFreelance() {
			return fmt.Errorf("role %s cannot offer services: %w", u.Role, ErrUnauthorized)
		}
		img := strings.TrimSpace(in.ImageURL)
		if img == "" {
			img = DefaultServiceImage
		}
		out = model.Service{
			ID:             newID(),
			FreelancerID:   u.ID,
			FreelancerName: u.Name,
			Title:          strings.TrimSpace(in.Title),
			Description:    strings.TrimSpace(in.Description),
			Category:       in.Category,
			Price:          in.Price,
			ImageURL:       img,
		}
		snap.Services = append(snap.Services, out)
		return nil
	})
	if err != nil {
		return model.Service{}, err
	}
	c.log.Info("service created", zap.String("service_id", out.ID), zap.String("freelancer_id", freelancerID))
	return out, nil
}

// Update edits a service owned by actorID.
func (c *Catalog) Update(ctx context.Context, actorID, id string, in ServiceInput) (model.Service, error) {
	var out model.Service
	err := c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		s := snap.Service(id)
		if s == nil {
			return fmt.Errorf("service %s: %w", id, ErrNotFound)
		}
		if s.FreelancerID != actorID {
			return fmt.Errorf("service %s: %w", id, ErrUnauthorized)
		}
		next := *s
		if t := strings.TrimSpace(in.Title); t != "" {
			next.Title = t
		}
		if d := strings.TrimSpace(in.Description); d != "" {
			next.Description = d
		}
		if in.Category != "" {
			next.Category = in.Category
		}
		if in.Price != 0 {
			next.Price = in.Price
		}
		if img := strings.TrimSpace(in.ImageURL); img != "" {
			next.ImageURL = img
		}
		if err := validateServiceInput(ServiceInput{Title: next.Title, Category: next.Category, Price: next.Price}); err != nil {
			return err
		}
		*s = next
		out = next
		return nil
	})
	return out, err
}

// Delete removes a service owned by actorID. Existing bookings keep their
// copy of the title.
func (c *Catalog) Delete(ctx context.Context, actorID, id string) error {
	return c.state.Update(ctx, func(_ context.Context, snap *repository.Snapshot) error {
		for i, s := range snap.Services {
			if s.ID != id {
				continue
			}
			if s.FreelancerID != actorID {
				return fmt.Errorf("service %s: %w", id, ErrUnauthorized)
			}
			snap.Services = append(snap.Services[:i], snap.Services[i+1:]...)
			return nil
		}
		return fmt.Errorf("service %s: %w", id, ErrNotFound)
	})
}
