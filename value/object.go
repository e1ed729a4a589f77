package value

import "encoding/json"

// Object is an ordered string→Value mapping. Rows are Objects: key
// order is preserved so output columns render in a stable order, and
// keys absent from a table's declared columns survive untouched.
type Object struct {
	keys   []string
	fields map[string]Value
	frozen bool
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{fields: make(map[string]Value)}
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the field names in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get returns the named field.
func (o *Object) Get(name string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.fields[name]
	if ok && o.frozen {
		v.frozen = true
	}
	return v, ok
}

// GetOr returns the named field or null when absent.
func (o *Object) GetOr(name string) Value {
	v, _ := o.Get(name)
	return v
}

// Set stores a field, appending the key on first write. Frozen objects
// are left untouched; mutation through a frozen Value is rejected by
// Value.SetField before reaching here, and direct callers hold only
// unfrozen rows.
func (o *Object) Set(name string, v Value) {
	if o.frozen {
		return
	}
	if _, ok := o.fields[name]; !ok {
		o.keys = append(o.keys, name)
	}
	o.fields[name] = v
}

// Delete removes a field. Returns ErrReadOnly on frozen objects.
func (o *Object) Delete(name string) error {
	if o.frozen {
		return ErrReadOnly
	}
	if _, ok := o.fields[name]; !ok {
		return nil
	}
	delete(o.fields, name)
	for i, k := range o.keys {
		if k == name {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Clone returns a deep, unfrozen copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys:   make([]string, len(o.keys)),
		fields: make(map[string]Value, len(o.fields)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.fields {
		c.fields[k] = v.Clone()
	}
	return c
}

// FreezeView returns a read-only view sharing this object's storage.
// The original stays writable by its owner.
func (o *Object) FreezeView() *Object {
	if o == nil {
		return nil
	}
	return &Object{keys: o.keys, fields: o.fields, frozen: true}
}

// ToGo converts the object to a plain map.
func (o *Object) ToGo() map[string]any {
	if o == nil {
		return nil
	}
	out := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		out[k] = v.ToGo()
	}
	return out
}

// MarshalJSON renders fields in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.fields[k].ToGo())
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// ObjectFromPairs builds an object from alternating key/value pairs,
// mostly for tests and small fixtures.
func ObjectFromPairs(pairs ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].(string)
		v, err := FromGo(pairs[i+1])
		if err != nil {
			continue
		}
		o.Set(k, v)
	}
	return o
}
