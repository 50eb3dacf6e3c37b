/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package credentials

import (
	"fmt"
	"strconv"
	"strings"
)

// evaluate resolves the subset of JSONPath used by presentation
// definitions: $, .name, ['name'], [n] and [*]. Values reached through [*]
// are flattened.
func evaluate(doc any, path string) ([]any, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("path %q must start with $", path)
	}
	current := []any{doc}
	rest := path[1:]

	for rest != "" {
		var next []any
		switch {
		case strings.HasPrefix(rest, "."):
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			name := rest[:end]
			rest = rest[end:]
			if name == "" {
				return nil, fmt.Errorf("path %q has an empty segment", path)
			}
			for _, c := range current {
				if m, ok := c.(map[string]any); ok {
					if v, ok := m[name]; ok {
						next = append(next, v)
					}
				}
			}

		case strings.HasPrefix(rest, "["):
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("path %q has an unclosed bracket", path)
			}
			sel := rest[1:end]
			rest = rest[end+1:]
			var err error
			next, err = selectBracket(current, sel)
			if err != nil {
				return nil, fmt.Errorf("path %q: %w", path, err)
			}

		default:
			return nil, fmt.Errorf("path %q has unexpected %q", path, rest)
		}
		current = next
	}
	return current, nil
}

func selectBracket(current []any, sel string) ([]any, error) {
	var next []any
	switch {
	case sel == "*":
		for _, c := range current {
			switch v := c.(type) {
			case []any:
				next = append(next, v...)
			case map[string]any:
				for _, item := range v {
					next = append(next, item)
				}
			}
		}

	case strings.HasPrefix(sel, "'") || strings.HasPrefix(sel, `"`):
		name := strings.Trim(sel, `'"`)
		for _, c := range current {
			if m, ok := c.(map[string]any); ok {
				if v, ok := m[name]; ok {
					next = append(next, v)
				}
			}
		}

	default:
		idx, err := strconv.Atoi(sel)
		if err != nil {
			return nil, fmt.Errorf("unsupported selector [%s]", sel)
		}
		for _, c := range current {
			if arr, ok := c.([]any); ok {
				i := idx
				if i < 0 {
					i += len(arr)
				}
				if i >= 0 && i < len(arr) {
					next = append(next, arr[i])
				}
			}
		}
	}
	return next, nil
}
