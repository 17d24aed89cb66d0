package pyvm

func binaryHandler(op string) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		b := f.Pop()
		a := f.Top()
		v, err := e.BinaryOp(op, a, b)
		if err != nil {
			return WhyNone, err
		}
		f.setTop(v)
		return WhyNone, nil
	}
}

func inplaceHandler(op string) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		b := f.Pop()
		a := f.Top()
		v, err := e.InplaceOp(op, a, b)
		if err != nil {
			return WhyNone, err
		}
		f.setTop(v)
		return WhyNone, nil
	}
}

func unaryHandler(op string) Handler {
	return func(e *Engine, f *Frame, in *Instruction) (Why, error) {
		v, err := e.UnaryOp(op, f.Top())
		if err != nil {
			return WhyNone, err
		}
		f.setTop(v)
		return WhyNone, nil
	}
}

func operatorFragment() fragment {
	handlers := map[string]Handler{
		"UNARY_POSITIVE": unaryHandler("+"),
		"UNARY_NEGATIVE": unaryHandler("-"),
		"UNARY_NOT":      unaryHandler("not"),
		"UNARY_INVERT":   unaryHandler("~"),

		"BINARY_SUBSCR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			key := f.Pop()
			v, err := e.GetItem(f.Top(), key)
			if err != nil {
				return WhyNone, err
			}
			f.setTop(v)
			return WhyNone, nil
		},
		"STORE_SUBSCR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			key := f.Pop()
			container := f.Pop()
			val := f.Pop()
			return WhyNone, e.SetItem(container, key, val)
		},
		"DELETE_SUBSCR": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			key := f.Pop()
			container := f.Pop()
			return WhyNone, e.DelItem(container, key)
		},
		"COMPARE_OP": func(e *Engine, f *Frame, in *Instruction) (Why, error) {
			b := f.Pop()
			v, err := e.Compare(in.Name, f.Top(), b)
			if err != nil {
				return WhyNone, err
			}
			f.setTop(v)
			return WhyNone, nil
		},
	}
	for name, op := range map[string]string{
		"POWER":        "**",
		"MULTIPLY":     "*",
		"MODULO":       "%",
		"ADD":          "+",
		"SUBTRACT":     "-",
		"FLOOR_DIVIDE": "//",
		"TRUE_DIVIDE":  "/",
		"LSHIFT":       "<<",
		"RSHIFT":       ">>",
		"AND":          "&",
		"XOR":          "^",
		"OR":           "|",
	} {
		handlers["BINARY_"+name] = binaryHandler(op)
		handlers["INPLACE_"+name] = inplaceHandler(op)
	}
	return fragment{
		name:     "operator",
		handlers: handlers,
	}
}
