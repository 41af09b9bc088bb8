package game

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry_OneLiveSessionPerChat(t *testing.T) {
	r := NewRegistry(testLimits)

	if _, ok := r.Get(1); ok {
		t.Error("в пустой таблице нашлась сессия")
	}

	s, err := r.Create(1, player(1, "A"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := r.Create(1, player(2, "B")); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("ожидалась ErrAlreadyActive, получено %v", err)
	}

	got, ok := r.Get(1)
	if !ok || got != s {
		t.Error("Get вернул не ту сессию")
	}

	r.Remove(1, s)
	if _, ok := r.Get(1); ok {
		t.Error("сессия осталась после Remove")
	}
}

func TestRegistry_RemoveKeepsReplacementSession(t *testing.T) {
	r := NewRegistry(testLimits)
	old, _ := r.Create(1, player(1, "A"))
	old.Join(player(2, "B"))
	if _, err := old.End(1); err != nil {
		t.Fatalf("End: %v", err)
	}

	// Пока чат убирает завершенную игру, кто-то уже создал следующую.
	fresh, err := r.Create(1, player(3, "C"))
	if err != nil {
		t.Fatalf("Create поверх завершенной: %v", err)
	}

	r.Remove(1, old)
	got, ok := r.Get(1)
	if !ok || got != fresh {
		t.Error("уборка старой сессии снесла новую живую игру")
	}
}

func TestRegistry_EndedSessionDoesNotBlockNew(t *testing.T) {
	r := NewRegistry(testLimits)
	s, _ := r.Create(1, player(1, "A"))
	s.Join(player(2, "B"))
	if _, err := s.End(1); err != nil {
		t.Fatalf("End: %v", err)
	}

	if _, err := r.Create(1, player(2, "B")); err != nil {
		t.Errorf("завершенная сессия не должна мешать новой: %v", err)
	}
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := NewRegistry(testLimits)

	var wg sync.WaitGroup
	created := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := r.Create(1, player(id, "P"))
			created <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(created)

	var ok int
	for err := range created {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrAlreadyActive) {
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("создалось %d сессий, ожидалась ровно одна", ok)
	}
}

func TestRegistry_SweepRemovesIdle(t *testing.T) {
	r := NewRegistry(testLimits)
	s, _ := r.Create(1, player(1, "A"))
	s.Join(player(2, "B"))
	r.Create(2, player(3, "C"))

	// Состариваем первую сессию вручную.
	s.mu.Lock()
	s.lastAction = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	expired := r.Sweep(10 * time.Minute)
	if len(expired) != 1 || expired[0].ChatID != 1 {
		t.Fatalf("Sweep вернул %v, ожидалась только сессия чата 1", expired)
	}
	if _, ok := r.Get(1); ok {
		t.Error("истекшая сессия осталась в таблице")
	}
	if _, ok := r.Get(2); !ok {
		t.Error("живая сессия пропала при уборке")
	}
}
