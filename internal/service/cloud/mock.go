package cloud

import "github.com/shopifydevguy1-ops/pos-system/internal/domain"

// MockService — конфигурируемая заглушка CloudBackupService для тестов и
// локальной разработки. Реальный клиент внешнего сервиса синхронизации
// подключается вместо неё в production-окружении.
type MockService struct {
	BackupErr error

	BackupCalls int
	LastSaleID  string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// BackupSale возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) BackupSale(sale domain.Sale) error {
	m.BackupCalls++
	m.LastSaleID = sale.ID
	return m.BackupErr
}

var _ domain.CloudBackupService = (*MockService)(nil)
