package game

// Action - закрытый набор игровых действий. Dispatcher разбирает его
// исчерпывающим switch, незнакомые действия до него не доходят.
type Action interface {
	isAction()
}

// CreateGame - создать игру в чате, отправитель становится ведущим.
type CreateGame struct{}

// Join - присоединиться к игре в фазе ожидания.
type Join struct{}

// Begin - запустить первый раунд. Доступно только создателю игры.
type Begin struct{}

// ChooseSituation - ведущий выбирает ситуацию раунда по индексу.
type ChooseSituation struct {
	Index int
}

// SubmitMeme - игрок выбирает мем из своего набора по индексу.
type SubmitMeme struct {
	Index int
}

// CastVote - ведущий выбирает победившую заявку по токену.
type CastVote struct {
	Token int
}

// NextRound - перейти к следующему раунду после подведения итогов.
type NextRound struct{}

// EndGame - завершить игру и зафиксировать результаты.
type EndGame struct{}

func (CreateGame) isAction()      {}
func (Join) isAction()            {}
func (Begin) isAction()           {}
func (ChooseSituation) isAction() {}
func (SubmitMeme) isAction()      {}
func (CastVote) isAction()        {}
func (NextRound) isAction()       {}
func (EndGame) isAction()         {}
