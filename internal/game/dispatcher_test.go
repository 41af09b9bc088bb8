package game

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/assets"
)

// fakePool отдает предсказуемые наборы без файлов на диске.
type fakePool struct {
	mu            sync.Mutex
	situationHits int
	memeHits      int
}

func (f *fakePool) SampleSituations(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.situationHits++
	situations := make([]string, 0, n)
	for i := 0; i < n; i++ {
		situations = append(situations, fmt.Sprintf("ситуация %d", i))
	}
	return situations
}

func (f *fakePool) SampleMemes(n int) []assets.Meme {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memeHits++
	memes := make([]assets.Meme, 0, n)
	for i := 0; i < n; i++ {
		memes = append(memes, assets.Meme{Name: fmt.Sprintf("meme_%d.jpg", i)})
	}
	return memes
}

// recordingReporter запоминает вызовы Finalize.
type recordingReporter struct {
	mu        sync.Mutex
	finalized int
	players   []Player
	scores    map[int64]int
	err       error
}

func (r *recordingReporter) Finalize(players []Player, scores map[int64]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized++
	r.players = players
	r.scores = scores
	return r.err
}

func newTestDispatcher() (*Dispatcher, *fakePool, *recordingReporter) {
	pool := &fakePool{}
	reporter := &recordingReporter{}
	d := NewDispatcher(NewRegistry(testLimits), pool, reporter, Settings{
		SituationsPerBatch: 10,
		MemesPerPlayer:     6,
	})
	return d, pool, reporter
}

func TestDispatcher_FullGameFlow(t *testing.T) {
	d, _, reporter := newTestDispatcher()
	chatID := int64(100)
	a, b, c := player(1, "A"), player(2, "B"), player(3, "C")

	mustDispatch := func(actor Player, action Action) []Event {
		t.Helper()
		events, err := d.Dispatch(chatID, actor, action)
		if err != nil {
			t.Fatalf("Dispatch(%T) от %d: %v", action, actor.ID, err)
		}
		return events
	}

	mustDispatch(a, CreateGame{})
	mustDispatch(b, Join{})
	mustDispatch(c, Join{})

	events := mustDispatch(a, Begin{})
	rs, ok := events[0].(RoundStarted)
	if !ok {
		t.Fatalf("ожидался RoundStarted, получено %T", events[0])
	}
	if len(rs.Situations) != 10 {
		t.Errorf("ситуаций %d, ожидалось 10", len(rs.Situations))
	}

	// Выбор ситуации раздает мемы всем, кроме ведущего.
	events = mustDispatch(a, ChooseSituation{Index: 0})
	var dealt int
	for _, ev := range events {
		if md, ok := ev.(MemesDealt); ok {
			dealt++
			if md.Player.ID == a.ID {
				t.Error("ведущему выдали набор мемов")
			}
			if len(md.Memes) != 6 {
				t.Errorf("в наборе %d мемов, ожидалось 6", len(md.Memes))
			}
		}
	}
	if dealt != 2 {
		t.Errorf("наборы получили %d игроков, ожидалось 2", dealt)
	}

	mustDispatch(b, SubmitMeme{Index: 0})
	events = mustDispatch(c, SubmitMeme{Index: 2})
	var voting *VotingStarted
	for _, ev := range events {
		if v, ok := ev.(VotingStarted); ok {
			voting = &v
		}
	}
	if voting == nil {
		t.Fatal("последняя заявка не открыла голосование")
	}

	events = mustDispatch(a, CastVote{Token: voting.Options[0].Token})
	if _, ok := events[0].(RoundFinished); !ok {
		t.Fatalf("ожидался RoundFinished, получено %T", events[0])
	}

	events = mustDispatch(b, NextRound{})
	rs, ok = events[0].(RoundStarted)
	if !ok {
		t.Fatalf("ожидался RoundStarted, получено %T", events[0])
	}
	if rs.Round != 2 || rs.Leader.ID != b.ID {
		t.Errorf("раунд %d с ведущим %d, ожидался раунд 2 с ведущим B", rs.Round, rs.Leader.ID)
	}

	events = mustDispatch(c, EndGame{})
	if _, ok := events[0].(GameEnded); !ok {
		t.Fatalf("ожидался GameEnded, получено %T", events[0])
	}
	if reporter.finalized != 1 {
		t.Errorf("Finalize вызван %d раз, ожидался ровно один", reporter.finalized)
	}
	if len(reporter.players) != 3 {
		t.Errorf("в снимке %d игроков, ожидалось 3", len(reporter.players))
	}

	// Сессия снесена, действия по чату больше не принимаются.
	if _, err := d.Dispatch(chatID, a, Join{}); !errors.Is(err, ErrNoGame) {
		t.Errorf("после End ожидалась ErrNoGame, получено %v", err)
	}
}

func TestDispatcher_NoGame(t *testing.T) {
	d, _, _ := newTestDispatcher()
	if _, err := d.Dispatch(1, player(1, "A"), Join{}); !errors.Is(err, ErrNoGame) {
		t.Errorf("ожидалась ErrNoGame, получено %v", err)
	}
}

func TestDispatcher_RejectionLeavesStateIntact(t *testing.T) {
	d, _, _ := newTestDispatcher()
	chatID := int64(5)
	a, b := player(1, "A"), player(2, "B")

	d.Dispatch(chatID, a, CreateGame{})
	d.Dispatch(chatID, b, Join{})
	d.Dispatch(chatID, a, Begin{})

	// Не ведущий пытается выбрать ситуацию.
	if _, err := d.Dispatch(chatID, b, ChooseSituation{Index: 0}); !errors.Is(err, ErrNotLeader) {
		t.Fatalf("ожидалась ErrNotLeader, получено %v", err)
	}

	sess, _ := d.registry.Get(chatID)
	if sess.State() != StateChoosingSituation {
		t.Errorf("после отказа state = %v, ожидался choosing_situation", sess.State())
	}
}

// Одновременные последние заявки не должны обе пропустить переход к
// голосованию: гард проверяется под замком сессии.
func TestDispatcher_ConcurrentSubmissionsSingleVoting(t *testing.T) {
	d, _, _ := newTestDispatcher()
	chatID := int64(7)
	a, b, c := player(1, "A"), player(2, "B"), player(3, "C")

	d.Dispatch(chatID, a, CreateGame{})
	d.Dispatch(chatID, b, Join{})
	d.Dispatch(chatID, c, Join{})
	d.Dispatch(chatID, a, Begin{})
	d.Dispatch(chatID, a, ChooseSituation{Index: 0})

	var wg sync.WaitGroup
	votings := make(chan int, 2)
	for _, p := range []Player{b, c} {
		wg.Add(1)
		go func(p Player) {
			defer wg.Done()
			events, err := d.Dispatch(chatID, p, SubmitMeme{Index: 0})
			if err != nil {
				t.Errorf("SubmitMeme(%d): %v", p.ID, err)
				return
			}
			count := 0
			for _, ev := range events {
				if _, ok := ev.(VotingStarted); ok {
					count++
				}
			}
			votings <- count
		}(p)
	}
	wg.Wait()
	close(votings)

	total := 0
	for n := range votings {
		total += n
	}
	if total != 1 {
		t.Errorf("VotingStarted случился %d раз, ожидался ровно один", total)
	}
}

func TestDispatcher_SweepFinalizesIdleGames(t *testing.T) {
	d, _, reporter := newTestDispatcher()
	chatID := int64(9)
	a, b := player(1, "A"), player(2, "B")

	d.Dispatch(chatID, a, CreateGame{})
	d.Dispatch(chatID, b, Join{})

	sess, _ := d.registry.Get(chatID)
	sess.mu.Lock()
	sess.lastAction = sess.lastAction.Add(-time.Hour)
	sess.mu.Unlock()

	expired := d.SweepIdle(10 * time.Minute)
	if len(expired) != 1 {
		t.Fatalf("истекло %d сессий, ожидалась одна", len(expired))
	}
	if reporter.finalized != 1 {
		t.Errorf("Finalize вызван %d раз, ожидался один", reporter.finalized)
	}
}
