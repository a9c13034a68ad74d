package schools

import (
	"context"
	"strings"

	"github.com/angelmondragon/uniformhub-backend/internal/access"
	"github.com/angelmondragon/uniformhub-backend/pkg/changefeed"
	"github.com/angelmondragon/uniformhub-backend/pkg/db"
	"github.com/angelmondragon/uniformhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service exposes partner schools to the storefront and back office.
type Service interface {
	// Search returns every school when query is blank.
	Search(ctx context.Context, query string) ([]models.School, error)
	List(ctx context.Context) ([]models.School, error)
	GetBySlug(ctx context.Context, slug string) (*models.School, error)
	Add(ctx context.Context, input AddInput) (*models.School, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.School, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// AddInput creates a school. Slug defaults to the slugified name.
type AddInput struct {
	Name     string  `json:"name" validate:"required,notblank,max=200"`
	Slug     string  `json:"slug" validate:"omitempty,max=200"`
	Location string  `json:"location" validate:"required,notblank,max=300"`
	LogoURL  *string `json:"logo_url" validate:"omitempty,url"`
}

// UpdateInput is a field-level patch.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Slug     *string `json:"slug" validate:"omitempty,min=1,max=200"`
	Location *string `json:"location" validate:"omitempty,min=1,max=300"`
	LogoURL  *string `json:"logo_url" validate:"omitempty,url"`
}

type service struct {
	repo      Repository
	guard     *access.Guard
	publisher changefeed.Publisher
}

// NewService wires school dependencies.
func NewService(repo Repository, guard *access.Guard, publisher changefeed.Publisher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "schools repository required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "access guard required")
	}
	if publisher == nil {
		publisher = changefeed.Discard{}
	}
	return &service{repo: repo, guard: guard, publisher: publisher}, nil
}

func (s *service) Search(ctx context.Context, query string) ([]models.School, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search schools")
	}
	if rows == nil {
		rows = []models.School{}
	}
	return rows, nil
}

func (s *service) List(ctx context.Context) ([]models.School, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schools")
	}
	if rows == nil {
		rows = []models.School{}
	}
	return rows, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*models.School, error) {
	school, err := s.repo.FindBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("school")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
	}
	return school, nil
}

func (s *service) Add(ctx context.Context, input AddInput) (*models.School, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*models.School, error) {
		name := strings.TrimSpace(input.Name)
		location := strings.TrimSpace(input.Location)
		if name == "" || location == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and location required")
		}
		slug := Slugify(input.Slug)
		if slug == "" {
			slug = Slugify(name)
		}
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be derived from name")
		}

		school := &models.School{Name: name, Slug: slug, Location: location, LogoURL: input.LogoURL}
		if err := s.repo.Create(ctx, school); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "school slug already exists").WithDetails(map[string]any{"slug": slug})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create school")
		}
		s.publisher.Publish(ctx, changefeed.TopicSchools, changefeed.OpCreated, school.ID.String(), school)
		return school, nil
	})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.School, error) {
	return access.Run(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) (*models.School, error) {
		if _, err := s.find(ctx, id); err != nil {
			return nil, err
		}

		fields := map[string]any{}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
			}
			fields["name"] = name
		}
		if input.Slug != nil {
			slug := Slugify(*input.Slug)
			if slug == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be blank")
			}
			fields["slug"] = slug
		}
		if input.Location != nil {
			location := strings.TrimSpace(*input.Location)
			if location == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "location cannot be blank")
			}
			fields["location"] = location
		}
		if input.LogoURL != nil {
			fields["logo_url"] = input.LogoURL
		}

		if err := s.repo.Update(ctx, id, fields); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "school slug already exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update school")
		}
		school, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		s.publisher.Publish(ctx, changefeed.TopicSchools, changefeed.OpUpdated, id.String(), school)
		return school, nil
	})
}

func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	return access.Do(ctx, s.guard, access.AdminHard, func(ctx context.Context, _ access.Principal) error {
		found, err := s.repo.Delete(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete school")
		}
		if !found {
			return pkgerrors.NotFound("school")
		}
		s.publisher.Publish(ctx, changefeed.TopicSchools, changefeed.OpDeleted, id.String(), nil)
		return nil
	})
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.NotFound("school")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load school")
	}
	return school, nil
}
