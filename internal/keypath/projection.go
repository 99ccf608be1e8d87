// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package keypath

import (
	"bytes"
	"encoding/json"
)

// Projection maps requested paths to extracted values. It marshals to a JSON
// object whose keys keep the order they were set in.
type Projection struct {
	keys   []string
	values map[string]interface{}
}

// Set stores value under path. Setting an existing path replaces the value
// and keeps its position.
func (p *Projection) Set(path string, value interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}
	if _, ok := p.values[path]; !ok {
		p.keys = append(p.keys, path)
	}
	p.values[path] = value
}

// MarshalJSON implements json.Marshaler. HTML characters are not escaped,
// matching how the output writer encodes raw events.
func (p *Projection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(key); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')

		if err := enc.Encode(p.values[key]); err != nil {
			return nil, err
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
