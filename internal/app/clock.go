package app

import (
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// systemClock — боевая реализация Clock поверх time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

var _ domain.Clock = systemClock{}
