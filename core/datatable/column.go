package datatable

// Align is a horizontal alignment hint for a column.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// RenderFunc renders a cell. The returned value may be a string (escaped),
// a template.HTML (trusted markup), a fmt.Stringer or any other value (fmt.Sprint).
type RenderFunc[T any] func(value any, record T, index int) any

// Column describes one column of a Table over records of type T.
// Columns are supplied once per Table and never change afterwards.
type Column[T any] struct {
	Key      string
	Title    string
	Value    func(T) any // field accessor; nil renders the placeholder
	Sortable bool
	Render   RenderFunc[T]
	Width    string // e.g. "120px", "20%"
	Align    Align
}

func (c Column[T]) value(rec T) any {
	if c.Value == nil {
		return nil
	}
	return c.Value(rec)
}

func (c Column[T]) align() Align {
	if c.Align == "" {
		return AlignLeft
	}
	return c.Align
}
