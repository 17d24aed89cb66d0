package pyvm

type List struct {
	Items []Value
}

func NewList(items ...Value) *List {
	return &List{
		Items: items,
	}
}

func (*List) Type() *Class { return ListClass }

func (l *List) Len() int {
	return len(l.Items)
}

func (l *List) Append(v Value) {
	l.Items = append(l.Items, v)
}
