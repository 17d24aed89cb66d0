package pyvm

import (
	"iter"
)

// Dict is an insertion-ordered hash table keyed by hashable values.
type Dict struct {
	index   map[uint64][]int
	entries []dictEntry
	live    int
}

type dictEntry struct {
	Key     Value
	Value   Value
	deleted bool
}

func NewDict() *Dict {
	return &Dict{}
}

func (*Dict) Type() *Class { return DictClass }

func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return d.live
}

func (d *Dict) find(key Value, h uint64) int {
	for _, i := range d.index[h] {
		if keyEqual(d.entries[i].Key, key) {
			return i
		}
	}
	return -1
}

func (d *Dict) set(key Value, h uint64, value Value) {
	if i := d.find(key, h); i >= 0 {
		d.entries[i].Value = value
		return
	}
	if d.index == nil {
		d.index = make(map[uint64][]int)
	}
	d.index[h] = append(d.index[h], len(d.entries))
	d.entries = append(d.entries, dictEntry{
		Key:   key,
		Value: value,
	})
	d.live++
}

func (d *Dict) remove(key Value, h uint64) (Value, bool) {
	i := d.find(key, h)
	if i < 0 {
		return nil, false
	}
	slot := d.index[h]
	for j, idx := range slot {
		if idx == i {
			slot = append(slot[:j:j], slot[j+1:]...)
			break
		}
	}
	if len(slot) == 0 {
		delete(d.index, h)
	} else {
		d.index[h] = slot
	}
	v := d.entries[i].Value
	d.entries[i] = dictEntry{deleted: true}
	d.live--
	if len(d.entries) > 16 && d.live < len(d.entries)/2 {
		d.compact()
	}
	return v, true
}

func (d *Dict) compact() {
	entries := make([]dictEntry, 0, d.live)
	index := make(map[uint64][]int, d.live)
	for _, entry := range d.entries {
		if entry.deleted {
			continue
		}
		h, _ := hashValue(entry.Key)
		index[h] = append(index[h], len(entries))
		entries = append(entries, entry)
	}
	d.entries = entries
	d.index = index
}

func (d *Dict) Get(key Value) (Value, bool, error) {
	h, err := hashValue(key)
	if err != nil {
		return nil, false, err
	}
	if d == nil {
		return nil, false, nil
	}
	i := d.find(key, h)
	if i < 0 {
		return nil, false, nil
	}
	return d.entries[i].Value, true, nil
}

func (d *Dict) Set(key Value, value Value) error {
	h, err := hashValue(key)
	if err != nil {
		return err
	}
	d.set(key, h, value)
	return nil
}

func (d *Dict) Delete(key Value) (Value, bool, error) {
	h, err := hashValue(key)
	if err != nil {
		return nil, false, err
	}
	v, ok := d.remove(key, h)
	return v, ok, nil
}

func (d *Dict) GetStr(name string) (Value, bool) {
	if d == nil {
		return nil, false
	}
	key := Str(name)
	i := d.find(key, strHash(name))
	if i < 0 {
		return nil, false
	}
	return d.entries[i].Value, true
}

func (d *Dict) SetStr(name string, value Value) {
	d.set(Str(name), strHash(name), value)
}

func (d *Dict) DeleteStr(name string) bool {
	_, ok := d.remove(Str(name), strHash(name))
	return ok
}

// All yields live entries in insertion order.
func (d *Dict) All() iter.Seq2[Value, Value] {
	return func(yield func(Value, Value) bool) {
		if d == nil {
			return
		}
		for i := 0; i < len(d.entries); i++ {
			entry := d.entries[i]
			if entry.deleted {
				continue
			}
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}

func (d *Dict) Keys() []Value {
	ret := make([]Value, 0, d.Len())
	for k := range d.All() {
		ret = append(ret, k)
	}
	return ret
}

func (d *Dict) Values() []Value {
	ret := make([]Value, 0, d.Len())
	for _, v := range d.All() {
		ret = append(ret, v)
	}
	return ret
}

func (d *Dict) Copy() *Dict {
	ret := NewDict()
	if d == nil {
		return ret
	}
	ret.entries = make([]dictEntry, 0, d.live)
	ret.index = make(map[uint64][]int, d.live)
	for _, entry := range d.entries {
		if entry.deleted {
			continue
		}
		h, _ := hashValue(entry.Key)
		ret.index[h] = append(ret.index[h], len(ret.entries))
		ret.entries = append(ret.entries, entry)
	}
	ret.live = len(ret.entries)
	return ret
}

func (d *Dict) Clear() {
	d.index = nil
	d.entries = nil
	d.live = 0
}

// Update copies every entry of other into d.
func (d *Dict) Update(other *Dict) {
	for k, v := range other.All() {
		h, _ := hashValue(k)
		d.set(k, h, v)
	}
}

// version changes whenever keys are added or removed.
func (d *Dict) version() int {
	return len(d.entries)<<32 | d.live
}
