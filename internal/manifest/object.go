package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object is a JSON object that remembers the order of its keys, so a
// package.json can be edited and written back without reshuffling the
// user's fields. Values stay as raw JSON until asked for, and values that
// were never Set are written back byte for byte.
type Object struct {
	keys   []string
	values map[string]json.RawMessage

	// edited holds the keys written through Set; nested the *Object
	// values among them, encoded recursively so their own untouched
	// values keep their bytes.
	edited map[string]bool
	nested map[string]*Object
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{
		values: make(map[string]json.RawMessage),
		edited: make(map[string]bool),
		nested: make(map[string]*Object),
	}
}

// ParseObject decodes a JSON object, preserving key order. A repeated key
// keeps its first position and its last value.
func ParseObject(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, found %v", tok)
	}

	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, found %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		obj.setRaw(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return obj, nil
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Raw returns the undecoded value for key.
func (o *Object) Raw(key string) (json.RawMessage, bool) {
	raw, ok := o.values[key]
	return raw, ok
}

// Get decodes the value for key into v. It reports false when the key is
// absent or the value does not decode into v.
func (o *Object) Get(key string, v any) bool {
	raw, ok := o.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Object returns the nested object stored under key.
func (o *Object) Object(key string) (*Object, bool) {
	raw, ok := o.values[key]
	if !ok {
		return nil, false
	}
	nested, err := ParseObject(raw)
	if err != nil {
		return nil, false
	}
	return nested, true
}

// Set encodes v and stores it under key. New keys are appended; existing
// keys keep their position.
func (o *Object) Set(key string, v any) error {
	var raw []byte
	var err error
	nested, isObject := v.(*Object)
	if isObject {
		raw, err = nested.MarshalJSON()
	} else {
		raw, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	o.setRaw(key, raw)
	o.edited[key] = true
	if isObject {
		o.nested[key] = nested
	} else {
		delete(o.nested, key)
	}
	return nil
}

// Delete removes key.
func (o *Object) Delete(key string) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	delete(o.edited, key)
	delete(o.nested, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *Object) setRaw(key string, raw json.RawMessage) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = append(json.RawMessage(nil), raw...)
}

// MarshalJSON writes the object compactly in key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	return o.encode("", "")
}

// MarshalIndent writes the object in key order using indent per level.
// Values that were never Set keep their original bytes, so an inline
// array stays inline.
func (o *Object) MarshalIndent(indent string) ([]byte, error) {
	return o.encode("", indent)
}

func (o *Object) encode(prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if len(o.keys) == 0 {
		return []byte("{}"), nil
	}

	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if indent != "" {
			buf.WriteString("\n" + prefix + indent)
		}

		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if indent != "" {
			buf.WriteByte(' ')
		}

		switch nested, isObject := o.nested[key]; {
		case indent == "":
			if err := json.Compact(&buf, o.values[key]); err != nil {
				return nil, fmt.Errorf("value for %q: %w", key, err)
			}
		case isObject:
			data, err := nested.encode(prefix+indent, indent)
			if err != nil {
				return nil, fmt.Errorf("value for %q: %w", key, err)
			}
			buf.Write(data)
		case o.edited[key]:
			if err := json.Indent(&buf, o.values[key], prefix+indent, indent); err != nil {
				return nil, fmt.Errorf("value for %q: %w", key, err)
			}
		default:
			buf.Write(o.values[key])
		}
	}
	if indent != "" {
		buf.WriteString("\n" + prefix)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
