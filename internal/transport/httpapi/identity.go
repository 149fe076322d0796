package httpapi

import (
	"net/http"
	"strings"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// employeeHeader несёт идентификатор сотрудника, проставленный шлюзом
// аутентификации перед сервисом.
const employeeHeader = "X-Employee-ID"

// headerIdentity извлекает идентификатор сотрудника из заголовка запроса.
type headerIdentity struct {
	r *http.Request
}

// NewHeaderIdentity создаёт IdentityProvider поверх HTTP-запроса.
func NewHeaderIdentity(r *http.Request) domain.IdentityProvider {
	return headerIdentity{r: r}
}

func (h headerIdentity) ActorID() (string, error) {
	actor := strings.TrimSpace(h.r.Header.Get(employeeHeader))
	if actor == "" {
		return "", domain.ErrCashierRequired
	}
	return actor, nil
}

var _ domain.IdentityProvider = headerIdentity{}
