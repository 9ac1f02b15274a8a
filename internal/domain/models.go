package domain

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{&Account{}, &Property{}, &Holding{}, &Transaction{}}
}
