package form

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillBuyer проходит опрос покупателя целиком
func fillBuyer(t *testing.T, m *Machine, s *Session, values map[FieldKey]string) {
	t.Helper()

	m.Start(s)
	for _, f := range Catalog {
		require.Equal(t, StepCollectingField, s.Step().Kind)
		require.Equal(t, f.Key, s.Step().Field)

		value, ok := values[f.Key]
		if !ok {
			value = "пропустить"
		}
		_, err := m.Input(s, value)
		require.NoError(t, err)
	}
	require.Equal(t, StepEnteringItemName, s.Step().Kind)
}

// addItem вводит одну позицию целиком
func addItem(t *testing.T, m *Machine, s *Session, name string, qty, price int) {
	t.Helper()

	if s.Step().Kind == StepReviewingItems {
		_, err := m.AddItem(s)
		require.NoError(t, err)
	}
	require.Equal(t, StepEnteringItemName, s.Step().Kind)

	_, err := m.Input(s, name)
	require.NoError(t, err)
	_, err = m.Input(s, fmt.Sprintf("%d", qty))
	require.NoError(t, err)
	_, err = m.Input(s, fmt.Sprintf("%d", price))
	require.NoError(t, err)
	require.Equal(t, StepReviewingItems, s.Step().Kind)
}

func TestCollectsFieldsInCatalogOrder(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)

	prompt := m.Start(s)
	assert.Contains(t, prompt.Text, Catalog[0].Prompt)

	visited := []FieldKey{}
	for s.Step().Kind == StepCollectingField {
		visited = append(visited, s.Step().Field)
		_, err := m.Input(s, "значение "+string(s.Step().Field))
		require.NoError(t, err)
	}

	require.Len(t, visited, len(Catalog))
	for i, f := range Catalog {
		assert.Equal(t, f.Key, visited[i])
	}
	assert.Equal(t, StepEnteringItemName, s.Step().Kind)

	for _, f := range Catalog {
		v, ok := s.BuyerField(f.Key)
		require.True(t, ok)
		assert.Equal(t, "значение "+string(f.Key), v)
	}
}

func TestSkipButtonAndSynonymEquivalent(t *testing.T) {
	synonyms := []string{"-", "пропустить", "Пропустить", "SKIP"}

	for _, syn := range synonyms {
		t.Run(syn, func(t *testing.T) {
			m := NewMachine()

			byButton := NewSession(1)
			m.Start(byButton)
			_, err := m.Skip(byButton)
			require.NoError(t, err)

			byText := NewSession(2)
			m.Start(byText)
			_, err = m.Input(byText, syn)
			require.NoError(t, err)

			vButton, _ := byButton.BuyerField(Catalog[0].Key)
			vText, _ := byText.BuyerField(Catalog[0].Key)
			assert.Equal(t, Placeholder, vButton)
			assert.Equal(t, Placeholder, vText)
			assert.Equal(t, byButton.Step(), byText.Step())
		})
	}
}

func TestSkipOutsideCollectingRejected(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)

	_, err := m.Skip(s)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestQuantityValidation(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)

	_, err := m.Input(s, "Цемент")
	require.NoError(t, err)
	require.Equal(t, StepEnteringItemQuantity, s.Step().Kind)

	for _, bad := range []string{"abc", "1.5", "", "0", "-3"} {
		_, err := m.Input(s, bad)
		ve, ok := AsValidation(err)
		require.True(t, ok, "input %q must be rejected", bad)
		assert.Equal(t, ReasonNotAnInteger, ve.Reason)
		assert.Equal(t, StepEnteringItemQuantity, s.Step().Kind)
		assert.Empty(t, s.Items())
	}

	_, err = m.Input(s, "3")
	require.NoError(t, err)
	assert.Equal(t, StepEnteringItemPrice, s.Step().Kind)
}

func TestPriceValidation(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)

	_, err := m.Input(s, "Цемент")
	require.NoError(t, err)
	_, err = m.Input(s, "3")
	require.NoError(t, err)

	for _, bad := range []string{"дорого", "-1", "10.50"} {
		_, err := m.Input(s, bad)
		_, ok := AsValidation(err)
		require.True(t, ok, "input %q must be rejected", bad)
		assert.Equal(t, StepEnteringItemPrice, s.Step().Kind)
		assert.Empty(t, s.Items())
	}

	// нулевая цена допустима
	_, err = m.Input(s, "0")
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, LineItem{Name: "Цемент", Quantity: 3, PriceNoVat: 0}, items[0])
	assert.Equal(t, StepReviewingItems, s.Step().Kind)
}

func TestTotalWithSurcharge(t *testing.T) {
	items := []LineItem{
		{Name: "A", Quantity: 2, PriceNoVat: 150000},
		{Name: "B", Quantity: 1, PriceNoVat: 50000},
	}
	assert.InDelta(t, 392000.0, Total(items), 0.0001)

	assert.Zero(t, Total(nil))
}

func TestFinishWithoutItemsRejected(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Цемент", 1, 1000)

	_, err := m.DeleteItem(s, 0)
	require.NoError(t, err)
	require.Empty(t, s.Items())

	_, err = m.BeginFinalize(s)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, ReasonNoItems, ve.Reason)
	assert.Equal(t, StepReviewingItems, s.Step().Kind)
}

func TestEditItemQuantityTouchesOnlyThatItem(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, map[FieldKey]string{FieldBuyerName: "ООО Ромашка"})
	addItem(t, m, s, "Цемент", 2, 150000)
	addItem(t, m, s, "Песок", 1, 50000)

	_, err := m.EditItemField(s, 0, ItemFieldQuantity)
	require.NoError(t, err)
	require.Equal(t, StepEditingItemField, s.Step().Kind)

	_, err = m.Input(s, "5")
	require.NoError(t, err)

	items := s.Items()
	assert.Equal(t, LineItem{Name: "Цемент", Quantity: 5, PriceNoVat: 150000}, items[0])
	assert.Equal(t, LineItem{Name: "Песок", Quantity: 1, PriceNoVat: 50000}, items[1])
	assert.Equal(t, StepReviewingItems, s.Step().Kind)

	name, _ := s.BuyerField(FieldBuyerName)
	assert.Equal(t, "ООО Ромашка", name)
}

func TestEditItemRejectsBadNumber(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Цемент", 2, 150000)

	_, err := m.EditItemField(s, 0, ItemFieldPrice)
	require.NoError(t, err)

	_, err = m.Input(s, "не число")
	_, ok := AsValidation(err)
	require.True(t, ok)
	// состояние не меняется, можно повторить ввод
	assert.Equal(t, StepEditingItemField, s.Step().Kind)
	assert.Equal(t, 150000, s.Items()[0].PriceNoVat)

	_, err = m.Input(s, "200000")
	require.NoError(t, err)
	assert.Equal(t, 200000, s.Items()[0].PriceNoVat)
}

func TestEditBuyerFieldWithSkipSynonym(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, map[FieldKey]string{FieldInn: "123456789"})
	addItem(t, m, s, "Цемент", 1, 1000)

	_, err := m.EditBuyerField(s, FieldInn)
	require.NoError(t, err)
	require.Equal(t, StepEditingBuyerField, s.Step().Kind)

	_, err = m.Input(s, "skip")
	require.NoError(t, err)

	inn, _ := s.BuyerField(FieldInn)
	assert.Equal(t, Placeholder, inn)
	assert.Equal(t, StepReviewingItems, s.Step().Kind)
}

func TestDeleteItemShiftsIndices(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Первый", 1, 100)
	addItem(t, m, s, "Второй", 2, 200)
	addItem(t, m, s, "Третий", 3, 300)

	_, err := m.DeleteItem(s, 1)
	require.NoError(t, err)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Первый", items[0].Name)
	assert.Equal(t, "Третий", items[1].Name)

	// повтор по устаревшему индексу — восстановимая ошибка
	_, err = m.DeleteItem(s, 2)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, ReasonIndexOutOfRange, ve.Reason)
	assert.Len(t, s.Items(), 2)
	assert.Equal(t, StepReviewingItems, s.Step().Kind)
}

func TestItemFieldsStaleIndexRejected(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Цемент", 1, 1000)

	_, err := m.ItemFields(s, 5)
	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, ReasonIndexOutOfRange, ve.Reason)

	_, err = m.EditItemField(s, -1, ItemFieldName)
	_, ok = AsValidation(err)
	require.True(t, ok)
}

func TestRestartMidFlowClearsEverything(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, map[FieldKey]string{FieldBuyerName: "ООО Ромашка"})
	addItem(t, m, s, "Цемент", 2, 150000)

	// доходим до середины ввода следующей позиции
	_, err := m.AddItem(s)
	require.NoError(t, err)
	_, err = m.Input(s, "Песок")
	require.NoError(t, err)
	_, err = m.Input(s, "4")
	require.NoError(t, err)
	require.Equal(t, StepEnteringItemPrice, s.Step().Kind)

	m.Start(s)

	assert.Equal(t, StepCollectingField, s.Step().Kind)
	assert.Equal(t, Catalog[0].Key, s.Step().Field)
	assert.Empty(t, s.Items())
	_, ok := s.BuyerField(FieldBuyerName)
	assert.False(t, ok)
}

func TestBeginFinalizeSnapshot(t *testing.T) {
	m := NewMachine()
	s := NewSession(77)
	fillBuyer(t, m, s, map[FieldKey]string{
		FieldBuyerName: "ООО Ромашка",
		FieldInn:       "123456789",
	})
	addItem(t, m, s, "Цемент", 2, 150000)

	snap, err := m.BeginFinalize(s)
	require.NoError(t, err)

	assert.Equal(t, int64(77), snap.ChatID)
	assert.Equal(t, "ООО Ромашка", snap.BuyerFields[FieldBuyerName])
	assert.Equal(t, "123456789", snap.BuyerFields[FieldInn])
	// ни одно поле каталога не отсутствует: пропущенные заполнены
	for _, f := range Catalog {
		require.Contains(t, snap.BuyerFields, f.Key)
	}
	assert.Equal(t, Placeholder, snap.BuyerFields[FieldAddress])
	require.Len(t, snap.Items, 1)
}

func TestDuplicateFinalizeRejected(t *testing.T) {
	m := NewMachine()
	s := NewSession(1)
	fillBuyer(t, m, s, nil)
	addItem(t, m, s, "Цемент", 1, 1000)

	_, err := m.BeginFinalize(s)
	require.NoError(t, err)

	// пока генерация не завершена, сессия не принимает событий
	_, err = m.BeginFinalize(s)
	assert.ErrorIs(t, err, ErrFinalizeInProgress)
	_, err = m.Input(s, "что-нибудь")
	assert.ErrorIs(t, err, ErrFinalizeInProgress)
	_, err = m.AddItem(s)
	assert.ErrorIs(t, err, ErrFinalizeInProgress)

	// неудача возвращает на этап просмотра, finish можно повторить
	m.CompleteFinalize(s, false)
	assert.Equal(t, StepReviewingItems, s.Step().Kind)
	assert.Len(t, s.Items(), 1)

	_, err = m.BeginFinalize(s)
	require.NoError(t, err)

	// успех терминален и очищает сессию
	m.CompleteFinalize(s, true)
	assert.Equal(t, StepIdle, s.Step().Kind)
	assert.Empty(t, s.Items())
}

func TestCustomSkipTokens(t *testing.T) {
	m := NewMachine("нет", "n/a")
	s := NewSession(1)
	m.Start(s)

	_, err := m.Input(s, "Нет")
	require.NoError(t, err)
	v, _ := s.BuyerField(Catalog[0].Key)
	assert.Equal(t, Placeholder, v)

	// дефолтные синонимы больше не действуют
	_, err = m.Input(s, "пропустить")
	require.NoError(t, err)
	v, _ = s.BuyerField(Catalog[1].Key)
	assert.Equal(t, "пропустить", v)
}
