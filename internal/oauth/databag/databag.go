/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package databag provides an ordered key/value container shared by the protocol pipelines.
// Writes never modify a bag in place; they return a new bag.
package databag

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/asgardeo/oidcengine/internal/system/utils"
)

// DataBag is an ordered, immutable-on-write set of named values. The zero value is an empty bag.
type DataBag struct {
	keys   []string
	values map[string]interface{}
}

// New creates a bag from alternating key and value arguments.
func New(pairs ...interface{}) DataBag {
	bag := DataBag{}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		bag = bag.With(key, pairs[i+1])
	}
	return bag
}

// FromMap creates a bag from a map. Keys are ordered lexically.
func FromMap(m map[string]interface{}) DataBag {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bag := DataBag{keys: keys, values: make(map[string]interface{}, len(m))}
	for k, v := range m {
		bag.values[k] = v
	}
	return bag
}

// Len returns the number of entries.
func (d DataBag) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d DataBag) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Has reports whether the key is present.
func (d DataBag) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Get returns the value stored under the key.
func (d DataBag) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// GetString returns the value under the key when it is a string.
func (d DataBag) GetString(key string) string {
	if s, ok := d.values[key].(string); ok {
		return s
	}
	return ""
}

// GetStringSlice returns the value under the key as a list of strings.
func (d DataBag) GetStringSlice(key string) []string {
	v, ok := d.values[key]
	if !ok {
		return nil
	}
	values, _ := utils.ToStringSlice(v)
	return values
}

// GetInt64 returns the value under the key as an integer.
func (d DataBag) GetInt64(key string) (int64, bool) {
	switch v := d.values[key].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// GetBool returns the value under the key when it is a boolean.
func (d DataBag) GetBool(key string) bool {
	b, _ := d.values[key].(bool)
	return b
}

// With returns a copy of the bag with the key set. Existing keys keep their position.
func (d DataBag) With(key string, value interface{}) DataBag {
	bag := d.clone()
	if _, ok := bag.values[key]; !ok {
		bag.keys = append(bag.keys, key)
	}
	bag.values[key] = value
	return bag
}

// Without returns a copy of the bag without the key.
func (d DataBag) Without(key string) DataBag {
	if !d.Has(key) {
		return d
	}
	bag := DataBag{
		keys:   make([]string, 0, len(d.keys)-1),
		values: make(map[string]interface{}, len(d.values)-1),
	}
	for _, k := range d.keys {
		if k == key {
			continue
		}
		bag.keys = append(bag.keys, k)
		bag.values[k] = d.values[k]
	}
	return bag
}

// Merge returns a copy of the bag with every entry of other set on top of it.
func (d DataBag) Merge(other DataBag) DataBag {
	bag := d.clone()
	for _, k := range other.keys {
		if _, ok := bag.values[k]; !ok {
			bag.keys = append(bag.keys, k)
		}
		bag.values[k] = other.values[k]
	}
	return bag
}

// Range calls fn for every entry in order until fn returns false.
func (d DataBag) Range(fn func(key string, value interface{}) bool) {
	for _, k := range d.keys {
		if !fn(k, d.values[k]) {
			return
		}
	}
}

// ToMap returns the entries as a new map.
func (d DataBag) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(d.keys))
	for _, k := range d.keys {
		m[k] = d.values[k]
	}
	return m
}

// MarshalJSON encodes the bag as a JSON object keeping the entry order.
func (d DataBag) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the entry order.
func (d *DataBag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if token == nil {
		*d = DataBag{}
		return nil
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errors.New("data bag must be a JSON object")
	}

	bag := DataBag{values: map[string]interface{}{}}
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyToken.(string)
		if !ok {
			return errors.New("data bag keys must be strings")
		}
		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if _, exists := bag.values[key]; !exists {
			bag.keys = append(bag.keys, key)
		}
		bag.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = bag
	return nil
}

func (d DataBag) clone() DataBag {
	bag := DataBag{
		keys:   make([]string, len(d.keys), len(d.keys)+1),
		values: make(map[string]interface{}, len(d.values)+1),
	}
	copy(bag.keys, d.keys)
	for k, v := range d.values {
		bag.values[k] = v
	}
	return bag
}
