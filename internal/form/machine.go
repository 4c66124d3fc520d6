package form

import (
	"fmt"
	"strconv"
	"strings"
)

// SurchargeRate надбавка, применяемая к итогу при финализации
const SurchargeRate = 1.12

// Callback-токены, которые машина вкладывает в кнопки.
// Транспортный слой возвращает их обратно как команды.
const (
	CmdSkip      = "skip"
	CmdAddItem   = "add_item"
	CmdEditItems = "edit_items"
	CmdEditBuyer = "edit_buyer"
	CmdFinish    = "finish"
	CmdMenu      = "menu"

	CmdPickItem      = "item:"        // item:<index>
	CmdPickItemField = "item_field:"  // item_field:<index>:<field>
	CmdPickBuyer     = "buyer_field:" // buyer_field:<key>
	CmdDeleteItem    = "del_item:"    // del_item:<index>
)

// Choice кнопка, предлагаемая вместе с текстом запроса
type Choice struct {
	Label string
	Data  string
}

// Prompt сообщение пользователю и необязательный набор кнопок
type Prompt struct {
	Text    string
	Choices []Choice
}

// Machine табличная машина переходов формы. Одна машина
// обслуживает любое число сессий, собственного состояния не имеет.
type Machine struct {
	catalog    []Field
	skipTokens map[string]struct{}
}

// DefaultSkipTokens синонимы пропуска, как их вводят пользователи
var DefaultSkipTokens = []string{"-", "пропустить", "skip"}

// NewMachine создаёт машину. Если токены пропуска не заданы,
// используются DefaultSkipTokens.
func NewMachine(skipTokens ...string) *Machine {
	if len(skipTokens) == 0 {
		skipTokens = DefaultSkipTokens
	}
	tokens := make(map[string]struct{}, len(skipTokens))
	for _, t := range skipTokens {
		tokens[strings.ToLower(t)] = struct{}{}
	}
	return &Machine{
		catalog:    Catalog,
		skipTokens: tokens,
	}
}

// normalize заменяет синонимы пропуска на Placeholder,
// остальной ввод сохраняется как есть
func (m *Machine) normalize(text string) string {
	if _, ok := m.skipTokens[strings.ToLower(strings.TrimSpace(text))]; ok {
		return Placeholder
	}
	return text
}

// Start начинает заполнение заново: все данные предыдущей
// сессии сбрасываются, опрос идёт с первого поля каталога.
func (m *Machine) Start(s *Session) Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	first := m.catalog[0]
	s.step = Step{Kind: StepCollectingField, Field: first.Key}
	s.touch()

	return Prompt{
		Text:    "📄 Начинаем создание договора.\n" + first.Prompt,
		Choices: []Choice{{Label: "⏭ Пропустить", Data: CmdSkip}},
	}
}

// Input обрабатывает текстовое сообщение в текущем состоянии
func (m *Machine) Input(s *Session, text string) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}

	switch s.step.Kind {
	case StepCollectingField:
		return m.collectField(s, text), nil
	case StepEnteringItemName:
		return m.itemName(s, text), nil
	case StepEnteringItemQuantity:
		return m.itemQuantity(s, text)
	case StepEnteringItemPrice:
		return m.itemPrice(s, text)
	case StepEditingItemField:
		return m.editItemValue(s, text)
	case StepEditingBuyerField:
		return m.editBuyerValue(s, text), nil
	case StepReviewingItems:
		// произвольный текст на этапе просмотра — просто показываем меню
		return m.menuPrompt(s), nil
	default:
		return Prompt{}, ErrUnexpectedEvent
	}
}

// Skip пропускает текущее поле по кнопке. Результат обязан
// совпадать с вводом синонима пропуска текстом.
func (m *Machine) Skip(s *Session) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepCollectingField {
		return Prompt{}, ErrUnexpectedEvent
	}
	return m.collectField(s, Placeholder), nil
}

// collectField сохраняет значение текущего поля и двигает опрос дальше.
// Вызывается под mu.
func (m *Machine) collectField(s *Session, text string) Prompt {
	s.buyerFields[s.step.Field] = m.normalize(text)
	s.touch()

	idx := fieldIndex(s.step.Field)
	if idx+1 < len(m.catalog) {
		next := m.catalog[idx+1]
		s.step = Step{Kind: StepCollectingField, Field: next.Key}
		return Prompt{
			Text:    next.Prompt,
			Choices: []Choice{{Label: "⏭ Пропустить", Data: CmdSkip}},
		}
	}

	// каталог пройден, переходим к позициям
	s.items = []LineItem{}
	s.step = Step{Kind: StepEnteringItemName}
	return Prompt{Text: "🔻 Введите название товара:"}
}

func (m *Machine) itemName(s *Session, text string) Prompt {
	s.pending.name = text
	s.step = Step{Kind: StepEnteringItemQuantity}
	s.touch()
	return Prompt{Text: fmt.Sprintf("Введите количество «%s»:", text)}
}

func (m *Machine) itemQuantity(s *Session, text string) (Prompt, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty <= 0 {
		return Prompt{}, &ValidationError{
			Reason:  ReasonNotAnInteger,
			Message: "❗ Введите число",
		}
	}
	s.pending.quantity = qty
	s.step = Step{Kind: StepEnteringItemPrice}
	s.touch()
	return Prompt{Text: "Стоимость за 1 шт (UZS):"}, nil
}

func (m *Machine) itemPrice(s *Session, text string) (Prompt, error) {
	price, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || price < 0 {
		return Prompt{}, &ValidationError{
			Reason:  ReasonNotAnInteger,
			Message: "❗ Цена должна быть числом",
		}
	}

	item := LineItem{
		Name:       s.pending.name,
		Quantity:   s.pending.quantity,
		PriceNoVat: price,
	}
	s.items = append(s.items, item)
	s.pending = pendingItem{}
	s.step = Step{Kind: StepReviewingItems}
	s.touch()

	p := m.menuPrompt(s)
	p.Text = fmt.Sprintf(
		"Товар добавлен ✔\n\n🟦 %s\nКоличество: %d\nЦена: %d сум\n\n%s",
		item.Name, item.Quantity, item.PriceNoVat, p.Text,
	)
	return p, nil
}

// AddItem начинает ввод следующей позиции из меню просмотра
func (m *Machine) AddItem(s *Session) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	s.pending = pendingItem{}
	s.step = Step{Kind: StepEnteringItemName}
	s.touch()
	return Prompt{Text: "🔻 Введите название товара:"}, nil
}

// Menu возвращает меню просмотра без смены состояния
func (m *Machine) Menu(s *Session) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	return m.menuPrompt(s), nil
}

// ItemList показывает пронумерованный список позиций для выбора.
// Состояние не меняется: выбор — поддиалог этапа просмотра.
func (m *Machine) ItemList(s *Session) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	if len(s.items) == 0 {
		return Prompt{}, &ValidationError{
			Reason:  ReasonNoItems,
			Message: "❗ Список товаров пуст",
		}
	}

	choices := make([]Choice, 0, len(s.items)+1)
	for i, it := range s.items {
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%d. %s", i+1, it.Name),
			Data:  fmt.Sprintf("%s%d", CmdPickItem, i),
		})
	}
	choices = append(choices, Choice{Label: "⬅️ Назад", Data: CmdMenu})
	return Prompt{Text: "✏️ Выберите товар:", Choices: choices}, nil
}

// ItemFields показывает выбор поля позиции и кнопку удаления
func (m *Machine) ItemFields(s *Session, index int) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	if index < 0 || index >= len(s.items) {
		return Prompt{}, &ValidationError{
			Reason:  ReasonIndexOutOfRange,
			Message: "❗ Товар не найден, список мог измениться",
		}
	}

	it := s.items[index]
	return Prompt{
		Text: fmt.Sprintf("🟦 %s\nКоличество: %d\nЦена: %d сум\n\nЧто изменить?",
			it.Name, it.Quantity, it.PriceNoVat),
		Choices: []Choice{
			{Label: "Название", Data: fmt.Sprintf("%s%d:%s", CmdPickItemField, index, ItemFieldName)},
			{Label: "Количество", Data: fmt.Sprintf("%s%d:%s", CmdPickItemField, index, ItemFieldQuantity)},
			{Label: "Цена", Data: fmt.Sprintf("%s%d:%s", CmdPickItemField, index, ItemFieldPrice)},
			{Label: "🗑 Удалить", Data: fmt.Sprintf("%s%d", CmdDeleteItem, index)},
			{Label: "⬅️ Назад", Data: CmdMenu},
		},
	}, nil
}

// EditItemField переводит сессию в редактирование поля позиции
func (m *Machine) EditItemField(s *Session, index int, field ItemField) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	if index < 0 || index >= len(s.items) {
		return Prompt{}, &ValidationError{
			Reason:  ReasonIndexOutOfRange,
			Message: "❗ Товар не найден, список мог измениться",
		}
	}

	s.step = Step{Kind: StepEditingItemField, ItemIndex: index, ItemField: field}
	s.touch()

	var text string
	switch field {
	case ItemFieldName:
		text = "Введите новое название:"
	case ItemFieldQuantity:
		text = "Введите новое количество:"
	case ItemFieldPrice:
		text = "Введите новую цену (UZS):"
	}
	return Prompt{Text: text}, nil
}

// editItemValue применяет введённое значение к редактируемой позиции.
// Вызывается под mu.
func (m *Machine) editItemValue(s *Session, text string) (Prompt, error) {
	index, field := s.step.ItemIndex, s.step.ItemField
	if index < 0 || index >= len(s.items) {
		// устаревший индекс, возвращаемся в меню
		s.step = Step{Kind: StepReviewingItems}
		s.touch()
		return Prompt{}, &ValidationError{
			Reason:  ReasonIndexOutOfRange,
			Message: "❗ Товар не найден, список мог измениться",
		}
	}

	switch field {
	case ItemFieldName:
		s.items[index].Name = text
	case ItemFieldQuantity:
		qty, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || qty <= 0 {
			return Prompt{}, &ValidationError{
				Reason:  ReasonNotAnInteger,
				Message: "❗ Введите число",
			}
		}
		s.items[index].Quantity = qty
	case ItemFieldPrice:
		price, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || price < 0 {
			return Prompt{}, &ValidationError{
				Reason:  ReasonNotAnInteger,
				Message: "❗ Цена должна быть числом",
			}
		}
		s.items[index].PriceNoVat = price
	}

	s.step = Step{Kind: StepReviewingItems}
	s.touch()

	p := m.menuPrompt(s)
	p.Text = "Изменено ✔\n\n" + p.Text
	return p, nil
}

// BuyerFieldList показывает выбор поля покупателя для правки
func (m *Machine) BuyerFieldList(s *Session) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}

	choices := make([]Choice, 0, len(m.catalog)+1)
	for _, f := range m.catalog {
		value := s.buyerFields[f.Key]
		if value == "" {
			value = Placeholder
		}
		choices = append(choices, Choice{
			Label: fmt.Sprintf("%s: %s", f.Label, value),
			Data:  CmdPickBuyer + string(f.Key),
		})
	}
	choices = append(choices, Choice{Label: "⬅️ Назад", Data: CmdMenu})
	return Prompt{Text: "👤 Выберите поле:", Choices: choices}, nil
}

// EditBuyerField переводит сессию в редактирование поля покупателя
func (m *Machine) EditBuyerField(s *Session, key FieldKey) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	field, ok := FieldByKey(key)
	if !ok {
		return Prompt{}, ErrUnexpectedEvent
	}

	s.step = Step{Kind: StepEditingBuyerField, Field: key}
	s.touch()
	return Prompt{Text: field.Prompt}, nil
}

// editBuyerValue сохраняет новое значение поля покупателя.
// Вызывается под mu.
func (m *Machine) editBuyerValue(s *Session, text string) Prompt {
	s.buyerFields[s.step.Field] = m.normalize(text)
	s.step = Step{Kind: StepReviewingItems}
	s.touch()

	p := m.menuPrompt(s)
	p.Text = "Изменено ✔\n\n" + p.Text
	return p
}

// DeleteItem удаляет позицию по индексу и возвращает список
func (m *Machine) DeleteItem(s *Session, index int) (Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Prompt{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Prompt{}, ErrUnexpectedEvent
	}
	if index < 0 || index >= len(s.items) {
		return Prompt{}, &ValidationError{
			Reason:  ReasonIndexOutOfRange,
			Message: "❗ Товар уже удалён",
		}
	}

	s.items = append(s.items[:index], s.items[index+1:]...)
	s.touch()

	p := m.menuPrompt(s)
	p.Text = "🗑 Товар удалён\n\n" + p.Text
	return p, nil
}

// BeginFinalize проверяет сессию и помечает её финализируемой.
// До CompleteFinalize сессия не принимает никаких событий.
func (m *Machine) BeginFinalize(s *Session) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalizing {
		return Snapshot{}, ErrFinalizeInProgress
	}
	if s.step.Kind != StepReviewingItems {
		return Snapshot{}, ErrUnexpectedEvent
	}
	if len(s.items) == 0 {
		return Snapshot{}, &ValidationError{
			Reason:  ReasonNoItems,
			Message: "❗ Добавьте хотя бы один товар",
		}
	}

	// в снимке каждое поле каталога присутствует: несобранные
	// заполняются Placeholder
	fields := make(map[FieldKey]string, len(m.catalog))
	for _, f := range m.catalog {
		value, ok := s.buyerFields[f.Key]
		if !ok || value == "" {
			value = Placeholder
		}
		fields[f.Key] = value
	}

	s.finalizing = true
	s.touch()

	return Snapshot{
		ChatID:      s.chatID,
		BuyerFields: fields,
		Items:       append([]LineItem(nil), s.items...),
	}, nil
}

// CompleteFinalize завершает финализацию. При успехе сессия
// очищается (завершение терминально), при неудаче возвращается
// на этап просмотра и finish можно повторить.
func (m *Machine) CompleteFinalize(s *Session, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		s.reset()
		return
	}
	s.finalizing = false
	s.step = Step{Kind: StepReviewingItems}
	s.touch()
}

// Total считает итог с надбавкой. Применяется только при финализации.
func Total(items []LineItem) float64 {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * float64(it.PriceNoVat) * SurchargeRate
	}
	return total
}

// menuPrompt строит меню этапа просмотра. Вызывается под mu.
func (m *Machine) menuPrompt(s *Session) Prompt {
	var b strings.Builder
	b.WriteString("📦 Позиции договора:\n")
	for i, it := range s.items {
		fmt.Fprintf(&b, "%d. %s — %d шт × %d сум\n", i+1, it.Name, it.Quantity, it.PriceNoVat)
	}
	if len(s.items) == 0 {
		b.Reset()
		b.WriteString("📦 Позиций пока нет\n")
	}
	b.WriteString("\nЧто дальше?")

	return Prompt{
		Text: b.String(),
		Choices: []Choice{
			{Label: "➕ Добавить товар", Data: CmdAddItem},
			{Label: "✏️ Изменить товары", Data: CmdEditItems},
			{Label: "👤 Данные покупателя", Data: CmdEditBuyer},
			{Label: "📄 Сформировать договор", Data: CmdFinish},
		},
	}
}
