package observability

// Label is a metric dimension. Values must come from a small, fixed set.
type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }

// Outcome labels the result of a use case, external call or charge attempt.
func Outcome(v string) Label { return Label{Key: "outcome", Value: v} }

type Field struct {
	Key   string
	Value any
}

func F(k string, v any) Field { return Field{Key: k, Value: v} }

// Err carries err under "error". Adapters may add the error's kind next to it.
func Err(err error) Field { return Field{Key: "error", Value: err} }

func OrderID(id string) Field { return Field{Key: "order_id", Value: id} }

func ProductID(id string) Field { return Field{Key: "product_id", Value: id} }

func StoreID(id string) Field { return Field{Key: "store_id", Value: id} }
