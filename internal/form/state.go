package form

// StepKind тег состояния диалога
type StepKind int

const (
	StepIdle StepKind = iota
	StepCollectingField
	StepEnteringItemName
	StepEnteringItemQuantity
	StepEnteringItemPrice
	StepReviewingItems
	StepEditingItemField
	StepEditingBuyerField
)

// ItemField редактируемое поле позиции договора
type ItemField string

const (
	ItemFieldName     ItemField = "name"
	ItemFieldQuantity ItemField = "quantity"
	ItemFieldPrice    ItemField = "price"
)

// Step состояние диалога вместе с сопутствующими данными.
// Field заполнен для StepCollectingField и StepEditingBuyerField,
// ItemIndex/ItemField — для StepEditingItemField.
type Step struct {
	Kind      StepKind
	Field     FieldKey
	ItemIndex int
	ItemField ItemField
}
