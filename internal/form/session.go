package form

import (
	"sync"
	"time"
)

// LineItem позиция договора. Попадает в список только целиком:
// имя, количество и цена уже проверены.
type LineItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceNoVat int    `json:"priceNoVat"`
}

// pendingItem промежуточные данные позиции во время пошагового ввода
type pendingItem struct {
	name     string
	quantity int
}

// Session состояние одного диалога заполнения договора.
// Все переходы идут через Machine, события одной сессии
// обрабатываются строго последовательно под mu.
type Session struct {
	mu sync.Mutex

	chatID      int64
	buyerFields map[FieldKey]string
	items       []LineItem
	pending     pendingItem
	step        Step
	finalizing  bool
	updatedAt   time.Time
}

// NewSession создаёт пустую сессию в состоянии Idle
func NewSession(chatID int64) *Session {
	return &Session{
		chatID:      chatID,
		buyerFields: make(map[FieldKey]string),
		step:        Step{Kind: StepIdle},
		updatedAt:   time.Now(),
	}
}

// ChatID возвращает идентификатор диалога
func (s *Session) ChatID() int64 {
	return s.chatID
}

// Step возвращает текущее состояние
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Items возвращает копию списка позиций
func (s *Session) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LineItem(nil), s.items...)
}

// BuyerField возвращает значение поля покупателя
func (s *Session) BuyerField(key FieldKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.buyerFields[key]
	return v, ok
}

// UpdatedAt время последнего перехода
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// touch вызывается под mu при каждом переходе
func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// reset очищает запись сессии, вызывается под mu
func (s *Session) reset() {
	s.buyerFields = make(map[FieldKey]string)
	s.items = nil
	s.pending = pendingItem{}
	s.step = Step{Kind: StepIdle}
	s.finalizing = false
	s.touch()
}

// Snapshot неизменяемый срез сессии для финализации
type Snapshot struct {
	ChatID      int64
	BuyerFields map[FieldKey]string
	Items       []LineItem
}
