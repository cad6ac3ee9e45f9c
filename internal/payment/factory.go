package payment

import (
	"fmt"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
)

// Factory выдает провайдера по его идентификатору.
type Factory struct {
	providers map[string]Provider
}

// NewFactory создает новую фабрику провайдеров.
func NewFactory() *Factory {
	return &Factory{providers: make(map[string]Provider)}
}

// Register регистрирует провайдера под идентификатором.
func (f *Factory) Register(providerID string, p Provider) {
	f.providers[providerID] = p
}

// Get возвращает провайдера по идентификатору. Неизвестный
// идентификатор - ошибка с его именем, обернутая в ErrUnknownProvider.
func (f *Factory) Get(providerID string) (Provider, error) {
	p, ok := f.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("payment: unknown provider %q: %w", providerID, domain.ErrUnknownProvider)
	}
	return p, nil
}

// ProviderIDs возвращает идентификаторы зарегистрированных провайдеров.
func (f *Factory) ProviderIDs() []string {
	ids := make([]string, 0, len(f.providers))
	for id := range f.providers {
		ids = append(ids, id)
	}
	return ids
}
