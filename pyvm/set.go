package pyvm

type Set struct {
	d      *Dict
	Frozen bool
}

func NewSet(items ...Value) (*Set, error) {
	s := &Set{
		d: NewDict(),
	}
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Type() *Class {
	if s.Frozen {
		return FrozenSetClass
	}
	return SetClass
}

func (s *Set) Len() int {
	return s.d.Len()
}

func (s *Set) Add(v Value) error {
	return s.d.Set(v, None)
}

func (s *Set) Contains(v Value) (bool, error) {
	_, ok, err := s.d.Get(v)
	return ok, err
}

func (s *Set) has(v Value) bool {
	ok, _ := s.Contains(v)
	return ok
}

func (s *Set) Remove(v Value) (bool, error) {
	_, ok, err := s.d.Delete(v)
	return ok, err
}

func (s *Set) Items() []Value {
	return s.d.Keys()
}

func (s *Set) copySet(frozen bool) *Set {
	return &Set{
		d:      s.d.Copy(),
		Frozen: frozen,
	}
}

func (s *Set) union(o *Set) *Set {
	ret := s.copySet(s.Frozen)
	for k := range o.d.All() {
		ret.Add(k)
	}
	return ret
}

func (s *Set) intersection(o *Set) *Set {
	ret := &Set{d: NewDict(), Frozen: s.Frozen}
	for k := range s.d.All() {
		if o.has(k) {
			ret.Add(k)
		}
	}
	return ret
}

func (s *Set) difference(o *Set) *Set {
	ret := &Set{d: NewDict(), Frozen: s.Frozen}
	for k := range s.d.All() {
		if !o.has(k) {
			ret.Add(k)
		}
	}
	return ret
}

func (s *Set) symmetricDifference(o *Set) *Set {
	ret := s.difference(o)
	for k := range o.d.All() {
		if !s.has(k) {
			ret.Add(k)
		}
	}
	return ret
}

func (s *Set) isSubset(o *Set) bool {
	if s.Len() > o.Len() {
		return false
	}
	for k := range s.d.All() {
		if !o.has(k) {
			return false
		}
	}
	return true
}
