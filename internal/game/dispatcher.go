package game

import (
	"fmt"
	"log"
	"time"

	"github.com/VladislavG32/telegram-memes-game-bot/internal/assets"
)

// AssetPool выдает случайные наборы контента. Вызовы идут вне замков сессий.
type AssetPool interface {
	SampleSituations(n int) []string
	SampleMemes(n int) []assets.Meme
}

// ScoreReporter фиксирует итоги завершенной игры во внешнем хранилище.
// Dispatcher вызывает его ровно один раз на сессию, при завершении.
type ScoreReporter interface {
	Finalize(players []Player, scores map[int64]int) error
}

// Settings - размеры выдаваемых наборов.
type Settings struct {
	SituationsPerBatch int
	MemesPerPlayer     int
}

// Dispatcher направляет действие игрока в нужную сессию и собирает список
// исходящих событий. Выборки из пула и фиксация статистики выполняются до
// взятия или после отпускания замка сессии, чтобы медленный ввод-вывод не
// тормозил ходы других игроков.
type Dispatcher struct {
	registry *Registry
	pool     AssetPool
	reporter ScoreReporter
	settings Settings
}

func NewDispatcher(registry *Registry, pool AssetPool, reporter ScoreReporter, settings Settings) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		pool:     pool,
		reporter: reporter,
		settings: settings,
	}
}

// Dispatch применяет действие и возвращает события для отправки в чат.
// Отказ (ошибки из errors.go) оставляет сессию без изменений.
func (d *Dispatcher) Dispatch(chatID int64, actor Player, action Action) ([]Event, error) {
	if _, ok := action.(CreateGame); ok {
		return d.createGame(chatID, actor)
	}

	sess, ok := d.registry.Get(chatID)
	if !ok {
		return nil, ErrNoGame
	}

	switch a := action.(type) {
	case Join:
		ev, err := sess.Join(actor)
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case Begin:
		// Набор тянем заранее: ситуации не отслеживают использованные,
		// при отказе выборка просто пропадает.
		situations := d.pool.SampleSituations(d.settings.SituationsPerBatch)
		ev, err := sess.Begin(actor.ID, situations)
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case ChooseSituation:
		return d.chooseSituation(sess, actor, a.Index)

	case SubmitMeme:
		out, err := sess.SubmitMeme(actor.ID, a.Index)
		if err != nil {
			return nil, err
		}
		events := []Event{out.Accepted}
		if out.Voting != nil {
			events = append(events, *out.Voting)
		}
		return events, nil

	case CastVote:
		ev, err := sess.CastVote(actor.ID, a.Token)
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case NextRound:
		situations := d.pool.SampleSituations(d.settings.SituationsPerBatch)
		ev, err := sess.AdvanceRound(actor.ID, situations)
		if err != nil {
			return nil, err
		}
		return []Event{ev}, nil

	case EndGame:
		summary, err := sess.End(actor.ID)
		if err != nil {
			return nil, err
		}
		d.registry.Remove(chatID, sess)
		d.finalize(summary)
		return []Event{summary.Ended}, nil

	default:
		return nil, fmt.Errorf("unknown action %T", action)
	}
}

func (d *Dispatcher) createGame(chatID int64, actor Player) ([]Event, error) {
	if _, err := d.registry.Create(chatID, actor); err != nil {
		return nil, err
	}
	return []Event{GameCreated{
		Creator:    actor,
		MinPlayers: d.registry.limits.MinPlayers,
		MaxPlayers: d.registry.limits.MaxPlayers,
	}}, nil
}

func (d *Dispatcher) chooseSituation(sess *Session, actor Player, index int) ([]Event, error) {
	picked, err := sess.ChooseSituation(actor.ID, index)
	if err != nil {
		return nil, err
	}
	events := []Event{picked.Chosen}

	if len(picked.DealTo) == 0 {
		// Раунд без заявок: голосовать некому, сразу следующий раунд.
		next := d.pool.SampleSituations(d.settings.SituationsPerBatch)
		if ev, ok := sess.SkipEmptyRound(next); ok {
			events = append(events, ev)
		}
		return events, nil
	}

	for _, p := range picked.DealTo {
		memes := d.pool.SampleMemes(d.settings.MemesPerPlayer)
		if err := sess.IssueMemes(p.ID, memes); err != nil {
			log.Printf("Failed to issue memes to %d in chat %d: %v", p.ID, sess.ChatID(), err)
			continue
		}
		events = append(events, MemesDealt{
			Player:    p,
			Situation: picked.Chosen.Situation,
			Memes:     memes,
		})
	}
	return events, nil
}

// SweepIdle завершает простаивающие сессии и фиксирует их результаты.
func (d *Dispatcher) SweepIdle(ttl time.Duration) []ExpiredGame {
	expired := d.registry.Sweep(ttl)
	for _, e := range expired {
		d.finalize(e.Summary)
	}
	return expired
}

// finalize пишет статистику. Ошибка хранилища не мешает снести сессию -
// игра в памяти уже закончена.
func (d *Dispatcher) finalize(summary EndSummary) {
	if err := d.reporter.Finalize(summary.Players, summary.Scores); err != nil {
		log.Printf("Failed to save game results: %v", err)
	}
}
