package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/repo"
)

// DimensionService manages the custom rating axes shared by a couple.
type DimensionService struct {
	DB  *gorm.DB
	Now func() time.Time
}

// Create registers a dimension on the caller's active couple.
func (s *DimensionService) Create(ctx context.Context, profileID, name string) (*domain.CustomDimension, error) {
	tr := otel.Tracer("services/DimensionService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}
	d, err := domain.NewCustomDimension(c.ID, profileID, name)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = clock(s.Now)
	if err := repo.CreateDimension(ctx, s.DB, d); err != nil {
		return nil, err
	}
	return d, nil
}

// List returns the dimensions of the caller's active couple, oldest first.
func (s *DimensionService) List(ctx context.Context, profileID string) ([]domain.CustomDimension, error) {
	tr := otel.Tracer("services/DimensionService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("profile.id", profileID)),
	)
	defer span.End()

	c, err := activeCouple(ctx, s.DB, profileID)
	if err != nil {
		return nil, err
	}
	return repo.ListDimensions(ctx, s.DB, c.ID)
}
