package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

func TestMemoryStore_GetMissingReturnsNil(t *testing.T) {
	s := NewMemoryStore()

	record, err := s.Get(context.Background(), "never-fetched.com")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record != nil {
		t.Errorf("record = %+v, want nil", record)
	}
}

func TestMemoryStore_PutThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	want := &domain.CacheRecord{
		Domain:    "example.com",
		Status:    domain.StatusSuccess,
		Content:   []byte(`{"sellers":[]}`),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("record is nil")
	}
	if got.Status != domain.StatusSuccess {
		t.Errorf("Status = %s, want success", got.Status)
	}
	if string(got.Content) != `{"sellers":[]}` {
		t.Errorf("Content = %s", got.Content)
	}
}

func TestMemoryStore_PutReplacesWholeRecord(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	code := 500
	s.Put(ctx, &domain.CacheRecord{
		Domain:       "example.com",
		Status:       domain.StatusError,
		StatusCode:   &code,
		ErrorMessage: "SERVER_ERROR: upstream returned 500",
		UpdatedAt:    time.Now(),
	})
	s.Put(ctx, &domain.CacheRecord{
		Domain:    "example.com",
		Status:    domain.StatusSuccess,
		Content:   []byte(`{"sellers":[{"seller_id":"1"}]}`),
		UpdatedAt: time.Now(),
	})

	got, _ := s.Get(ctx, "example.com")
	if got.Status != domain.StatusSuccess {
		t.Errorf("Status = %s, want success", got.Status)
	}
	if got.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty after replacement", got.ErrorMessage)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Put(ctx, &domain.CacheRecord{
		Domain: "example.com",
		Status: domain.StatusSuccess,
	})

	first, _ := s.Get(ctx, "example.com")
	first.Status = domain.StatusError

	second, _ := s.Get(ctx, "example.com")
	if second.Status != domain.StatusSuccess {
		t.Error("mutating a returned record must not affect the store")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			dom := "domain-" + string(rune('a'+n)) + ".com"
			for j := 0; j < 50; j++ {
				s.Put(ctx, &domain.CacheRecord{Domain: dom, Status: domain.StatusSuccess})
				s.Get(ctx, dom)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("Len = %d, want 10", s.Len())
	}
}
