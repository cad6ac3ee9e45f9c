package payment

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/service"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

// fakeSubscriptionService записывает активации и отмены вместо работы с БД
type fakeSubscriptionService struct {
	activations []service.ActivateParams
	cancels     []string
	existing    map[string]bool
	activateErr error
	cancelErr   error
}

func newFakeSubscriptionService() *fakeSubscriptionService {
	return &fakeSubscriptionService{existing: make(map[string]bool)}
}

func (f *fakeSubscriptionService) Activate(ctx context.Context, params service.ActivateParams) (bool, error) {
	if f.activateErr != nil {
		return false, f.activateErr
	}
	key := params.Provider + "|" + params.ExternalID
	if f.existing[key] {
		return false, nil
	}
	f.existing[key] = true
	f.activations = append(f.activations, params)
	return true, nil
}

func (f *fakeSubscriptionService) CancelByExternalID(ctx context.Context, provider, externalID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, externalID)
	return nil
}

func (f *fakeSubscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}
