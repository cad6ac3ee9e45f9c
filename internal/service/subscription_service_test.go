package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/internal/metrics"
	"github.com/Avdeenko/Classifieds-backend/internal/repository"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
)

type fakeSubscriptionRepo struct {
	byExternal map[string]*domain.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{byExternal: make(map[string]*domain.Subscription)}
}

func externalKey(provider, externalID string) string {
	return provider + "|" + externalID
}

func (f *fakeSubscriptionRepo) CreateIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	key := externalKey(sub.Provider, sub.ExternalID)
	if _, exists := f.byExternal[key]; exists {
		return false, nil
	}
	f.byExternal[key] = sub
	return true, nil
}

func (f *fakeSubscriptionRepo) GetByExternalID(ctx context.Context, provider, externalID string) (*domain.Subscription, error) {
	sub, ok := f.byExternal[externalKey(provider, externalID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sub, nil
}

func (f *fakeSubscriptionRepo) ExistsByExternalID(ctx context.Context, provider, externalID string) (bool, error) {
	_, ok := f.byExternal[externalKey(provider, externalID)]
	return ok, nil
}

func (f *fakeSubscriptionRepo) UpdateStatusByExternalID(ctx context.Context, provider, externalID string, status domain.SubscriptionStatus) error {
	sub, ok := f.byExternal[externalKey(provider, externalID)]
	if !ok {
		return repository.ErrNotFound
	}
	sub.Status = status
	return nil
}

func (f *fakeSubscriptionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error) {
	var result []domain.Subscription
	for _, sub := range f.byExternal {
		if sub.UserID == userID {
			result = append(result, *sub)
		}
	}
	return result, nil
}

type fakePlanRepo struct {
	plan *domain.Plan
}

func (f *fakePlanRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Plan, error) {
	if f.plan == nil || f.plan.ID != id {
		return nil, repository.ErrNotFound
	}
	return f.plan, nil
}

func (f *fakePlanRepo) GetBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	return nil, repository.ErrNotFound
}

func (f *fakePlanRepo) ListActive(ctx context.Context) ([]domain.Plan, error) {
	if f.plan == nil {
		return nil, nil
	}
	return []domain.Plan{*f.plan}, nil
}

func (f *fakePlanRepo) Create(ctx context.Context, plan *domain.Plan) error { return nil }
func (f *fakePlanRepo) Update(ctx context.Context, plan *domain.Plan) error { return nil }

type fakeMethodRepo struct {
	methods map[string]*domain.PaymentMethod
}

func (f *fakeMethodRepo) GetByProviderID(ctx context.Context, providerID string) (*domain.PaymentMethod, error) {
	method, ok := f.methods[providerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return method, nil
}

func (f *fakeMethodRepo) ListActive(ctx context.Context) ([]domain.PaymentMethod, error) {
	var result []domain.PaymentMethod
	for _, m := range f.methods {
		result = append(result, *m)
	}
	return result, nil
}

type recordingProducer struct {
	created  []*domain.Subscription
	canceled []*domain.Subscription
}

func (r *recordingProducer) PublishSubscriptionCreated(ctx context.Context, sub *domain.Subscription) error {
	r.created = append(r.created, sub)
	return nil
}

func (r *recordingProducer) PublishSubscriptionCanceled(ctx context.Context, sub *domain.Subscription) error {
	r.canceled = append(r.canceled, sub)
	return nil
}

func (r *recordingProducer) Close() error { return nil }

func testLogger() *logger.Logger {
	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)
	return log
}

type serviceFixture struct {
	svc      SubscriptionService
	subs     *fakeSubscriptionRepo
	producer *recordingProducer
	plan     *domain.Plan
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	plan := &domain.Plan{
		ID:             uuid.New(),
		Name:           "Premium",
		Slug:           "premium",
		Price:          "19.99",
		Currency:       "USD",
		DurationMonths: 3,
		IsActive:       true,
	}
	subs := newFakeSubscriptionRepo()
	producer := &recordingProducer{}
	methods := &fakeMethodRepo{methods: map[string]*domain.PaymentMethod{
		domain.ProviderStripe: {ID: uuid.New(), Name: "Card", ProviderID: domain.ProviderStripe, IsActive: true},
	}}

	svc := NewSubscriptionService(
		subs,
		&fakePlanRepo{plan: plan},
		methods,
		producer,
		metrics.NewSubscriptionMetrics(prometheus.NewRegistry()),
		testLogger(),
	)

	return &serviceFixture{svc: svc, subs: subs, producer: producer, plan: plan}
}

func TestActivate_CreatesSubscription(t *testing.T) {
	f := newServiceFixture(t)
	userID := uuid.New()

	created, err := f.svc.Activate(context.Background(), ActivateParams{
		UserID:     userID,
		PlanID:     f.plan.ID,
		Provider:   domain.ProviderStripe,
		ExternalID: "sub_123",
	})
	require.NoError(t, err)
	assert.True(t, created)

	sub, err := f.subs.GetByExternalID(context.Background(), domain.ProviderStripe, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, userID, sub.UserID)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.PlanID)
	assert.Equal(t, f.plan.ID, *sub.PlanID)
	assert.NotNil(t, sub.PaymentMethodID)

	// Срок действия выставлен из длительности плана
	require.NotNil(t, sub.EndDate)
	assert.Equal(t, sub.StartDate.AddDate(0, f.plan.DurationMonths, 0), *sub.EndDate)
	assert.True(t, sub.IsActive())

	require.Len(t, f.producer.created, 1)
	assert.Equal(t, sub.ID, f.producer.created[0].ID)
}

func TestActivate_DuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	params := ActivateParams{
		UserID:     uuid.New(),
		PlanID:     f.plan.ID,
		Provider:   domain.ProviderNowPayments,
		ExternalID: "payment-42",
	}
	ctx := context.Background()

	created, err := f.svc.Activate(ctx, params)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.Activate(ctx, params)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Len(t, f.subs.byExternal, 1)
	assert.Len(t, f.producer.created, 1)
}

func TestActivate_UnknownPlan(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Activate(context.Background(), ActivateParams{
		UserID:     uuid.New(),
		PlanID:     uuid.New(),
		Provider:   domain.ProviderStripe,
		ExternalID: "sub_999",
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.subs.byExternal)
}

func TestCancelByExternalID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Activate(ctx, ActivateParams{
		UserID:     uuid.New(),
		PlanID:     f.plan.ID,
		Provider:   domain.ProviderStripe,
		ExternalID: "sub_123",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelByExternalID(ctx, domain.ProviderStripe, "sub_123"))

	sub, err := f.subs.GetByExternalID(ctx, domain.ProviderStripe, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusCanceled, sub.Status)
	assert.False(t, sub.IsActive())

	require.Len(t, f.producer.canceled, 1)
}

func TestCancelByExternalID_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.CancelByExternalID(context.Background(), domain.ProviderStripe, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, f.producer.canceled)
}

func TestListForUser(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.svc.Activate(ctx, ActivateParams{
		UserID:     userID,
		PlanID:     f.plan.ID,
		Provider:   domain.ProviderStripe,
		ExternalID: "sub_1",
	})
	require.NoError(t, err)
	_, err = f.svc.Activate(ctx, ActivateParams{
		UserID:     uuid.New(),
		PlanID:     f.plan.ID,
		Provider:   domain.ProviderStripe,
		ExternalID: "sub_2",
	})
	require.NoError(t, err)

	subs, err := f.svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ExternalID)
}
