package pyvm

type Range struct {
	Start int64
	Stop  int64
	Step  int64
}

func (*Range) Type() *Class { return RangeClass }

func (r *Range) Len() int64 {
	if r.Step > 0 {
		if r.Start >= r.Stop {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	} else if r.Step < 0 {
		if r.Start <= r.Stop {
			return 0
		}
		return (r.Start - r.Stop - r.Step - 1) / -r.Step
	}
	return 0
}

func (r *Range) At(i int64) int64 {
	return r.Start + i*r.Step
}

func (r *Range) Contains(n int64) bool {
	if r.Step > 0 {
		if n < r.Start || n >= r.Stop {
			return false
		}
	} else if n > r.Start || n <= r.Stop {
		return false
	}
	return (n-r.Start)%r.Step == 0
}

func (r *Range) iterator() *Iterator {
	i := int64(0)
	n := r.Len()
	return &Iterator{
		Name: "range_iterator",
		Next: func() (Value, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			v := r.At(i)
			i++
			return Int(v), true, nil
		},
	}
}
