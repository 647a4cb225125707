package entity

// OperatorState состояние оператора в диалоге
type OperatorState string

const (
	StateIdle              OperatorState = "idle"                // Ждём команду
	StateAwaitingModelName OperatorState = "awaiting_model_name" // Ожидание имени модели
)

// Operator представляет оператора линии в боте
type Operator struct {
	ID     int64         // Telegram User ID
	ChatID int64         // Telegram Chat ID
	State  OperatorState // Текущее состояние диалога
	Alerts bool          // Подписка на NG-уведомления
}

// NewOperator создаёт оператора с начальным состоянием
func NewOperator(userID, chatID int64) *Operator {
	return &Operator{
		ID:     userID,
		ChatID: chatID,
		State:  StateIdle,
	}
}

// SetState обновляет состояние оператора
func (o *Operator) SetState(state OperatorState) {
	o.State = state
}
