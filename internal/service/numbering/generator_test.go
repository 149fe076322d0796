package numbering_test

import (
	"sync"
	"testing"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/service/numbering"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
)

func TestGenerator_Format(t *testing.T) {
	gen := numbering.NewGenerator(memory.NewCounterRepository(), nil)
	date := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)

	number, err := gen.Next(date)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if number != "SALE-20260831-0001" {
		t.Fatalf("expected SALE-20260831-0001, got %s", number)
	}

	number, err = gen.Next(date)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if number != "SALE-20260831-0002" {
		t.Fatalf("expected SALE-20260831-0002, got %s", number)
	}
}

func TestGenerator_DailyReset(t *testing.T) {
	gen := numbering.NewGenerator(memory.NewCounterRepository(), nil)

	day1 := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 1, 0, 1, 0, 0, time.UTC)

	if _, err := gen.Next(day1); err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if _, err := gen.Next(day1); err != nil {
		t.Fatalf("next failed: %v", err)
	}

	number, err := gen.Next(day2)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if number != "SALE-20260901-0001" {
		t.Fatalf("expected sequence reset for new day, got %s", number)
	}
}

func TestGenerator_SequenceBeyondPadding(t *testing.T) {
	counters := memory.NewCounterRepository()
	for i := 0; i < 9999; i++ {
		if _, err := counters.Next("20260831"); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	gen := numbering.NewGenerator(counters, nil)
	number, err := gen.Next(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	// Падинг расширяется, номер остаётся уникальным.
	if number != "SALE-20260831-10000" {
		t.Fatalf("expected SALE-20260831-10000, got %s", number)
	}
}

func TestGenerator_ConcurrentDistinct(t *testing.T) {
	gen := numbering.NewGenerator(memory.NewCounterRepository(), nil)
	date := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	const workers = 100

	var wg sync.WaitGroup
	numbers := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := gen.Next(date)
			if err != nil {
				t.Errorf("next failed: %v", err)
				return
			}
			numbers <- number
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[string]bool, workers)
	for number := range numbers {
		if seen[number] {
			t.Fatalf("duplicate sale number %s", number)
		}
		seen[number] = true
	}
	if len(seen) != workers {
		t.Fatalf("expected %d distinct numbers, got %d", workers, len(seen))
	}
}
