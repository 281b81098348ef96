package mockrepository

import (
	"context"

	"device-activity-service/internal/model"
	"device-activity-service/internal/repository"

	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

// Interface compliance check
var _ repository.ArchiveRepository = &Repository{}

func (m *Repository) CreateBatch(ctx context.Context, events []model.ActivityEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *Repository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
