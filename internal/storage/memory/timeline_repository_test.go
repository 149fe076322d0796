package memory_test

import (
	"testing"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
)

func TestTimelineRepository_AppendList(t *testing.T) {
	repo := memory.NewTimelineRepository()
	now := time.Now().UTC()

	events := []domain.TimelineEvent{
		{SaleID: "sale-1", Type: domain.TimelineSaleCompleted, Occurred: now},
		{SaleID: "sale-1", Type: domain.TimelineSaleRefunded, Reason: "damaged", Occurred: now.Add(time.Minute)},
		{SaleID: "sale-2", Type: domain.TimelineSaleCompleted, Occurred: now},
	}
	for _, event := range events {
		if err := repo.Append(event); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	listed, err := repo.List("sale-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(listed))
	}
	if listed[0].Type != domain.TimelineSaleCompleted || listed[1].Type != domain.TimelineSaleRefunded {
		t.Fatalf("unexpected order: %+v", listed)
	}

	empty, err := repo.List("sale-3")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events, got %d", len(empty))
	}
}
