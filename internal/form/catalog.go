package form

// FieldKey идентификатор поля покупателя в каталоге
type FieldKey string

const (
	FieldBuyerName FieldKey = "buyer_name"
	FieldInn       FieldKey = "inn"
	FieldAddress   FieldKey = "address"
	FieldPhone     FieldKey = "phone"
	FieldAccount   FieldKey = "account"
	FieldBank      FieldKey = "bank"
	FieldMfo       FieldKey = "mfo"
	FieldDirector  FieldKey = "director"
)

// Placeholder подставляется вместо явно пропущенного поля
const Placeholder = "________"

// Field одно поле каталога покупателя
type Field struct {
	Key    FieldKey
	Label  string // короткое имя для меню редактирования
	Prompt string // текст запроса при опросе
}

// Catalog упорядоченный список полей покупателя.
// Порядок фиксирован и определяет последовательность опроса.
var Catalog = []Field{
	{Key: FieldBuyerName, Label: "Имя покупателя", Prompt: "Введите имя покупателя:"},
	{Key: FieldInn, Label: "ИНН", Prompt: "Введите ИНН:"},
	{Key: FieldAddress, Label: "Юридический адрес", Prompt: "Юридический адрес:"},
	{Key: FieldPhone, Label: "Телефон", Prompt: "Телефон:"},
	{Key: FieldAccount, Label: "Р/С", Prompt: "Р/С:"},
	{Key: FieldBank, Label: "Банк", Prompt: "Банк:"},
	{Key: FieldMfo, Label: "МФО", Prompt: "МФО:"},
	{Key: FieldDirector, Label: "Директор", Prompt: "Директор:"},
}

// FieldByKey ищет поле каталога по ключу
func FieldByKey(key FieldKey) (Field, bool) {
	for _, f := range Catalog {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// fieldIndex возвращает позицию поля в каталоге, -1 если поля нет
func fieldIndex(key FieldKey) int {
	for i, f := range Catalog {
		if f.Key == key {
			return i
		}
	}
	return -1
}
