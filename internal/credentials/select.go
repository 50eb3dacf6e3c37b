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
	"errors"
	"fmt"
	"regexp"

	"wallet-exchange-go/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrRequirementsNotMet = errors.New("credentials do not satisfy presentation definition")

// Select returns the subset of credentials (VC JWTs) that satisfy at least
// one input descriptor of pd, in their original order. A nil pd selects
// nothing.
func Select(creds []string, pd *models.PresentationDefinition) []string {
	if pd == nil || len(pd.InputDescriptors) == 0 {
		return nil
	}

	var selected []string
	for _, raw := range creds {
		doc, err := decode(raw)
		if err != nil {
			zap.L().Debug("Skipping unreadable credential", zap.Error(err))
			continue
		}
		for _, desc := range pd.InputDescriptors {
			if matches(doc, desc) {
				selected = append(selected, raw)
				break
			}
		}
	}
	return selected
}

// Satisfies checks that every input descriptor of pd is matched by at least
// one credential.
func Satisfies(creds []string, pd *models.PresentationDefinition) error {
	if pd == nil {
		return nil
	}

	docs := make([]map[string]any, 0, len(creds))
	for _, raw := range creds {
		doc, err := decode(raw)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequirementsNotMet, err)
		}
		docs = append(docs, doc)
	}

	for _, desc := range pd.InputDescriptors {
		found := false
		for _, doc := range docs {
			if matches(doc, desc) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: no credential for input descriptor %q", ErrRequirementsNotMet, desc.ID)
		}
	}
	return nil
}

func decode(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("invalid credential jwt: %w", err)
	}
	return claims, nil
}

func matches(doc map[string]any, desc models.InputDescriptor) bool {
	for _, field := range desc.Constraints.Fields {
		if field.Optional {
			continue
		}
		if !fieldMatches(doc, field) {
			return false
		}
	}
	return true
}

func fieldMatches(doc map[string]any, field models.Field) bool {
	for _, path := range field.Path {
		values, err := evaluate(doc, path)
		if err != nil {
			zap.L().Debug("Invalid credential path", zap.String("path", path), zap.Error(err))
			continue
		}
		// VC JWTs nest the credential under "vc"
		if len(values) == 0 {
			if vc, ok := doc["vc"].(map[string]any); ok {
				values, _ = evaluate(vc, path)
			}
		}
		for _, v := range values {
			if field.Filter == nil || filterAccepts(*field.Filter, v) {
				return true
			}
		}
	}
	return false
}

func filterAccepts(f models.Filter, v any) bool {
	if f.Type != "" && !typeMatches(f.Type, v) {
		return false
	}
	if f.Const != nil && fmt.Sprint(f.Const) != fmt.Sprint(v) {
		return false
	}
	if f.Pattern != "" {
		s, ok := v.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(f.Pattern)
		if err != nil || !re.MatchString(s) {
			return false
		}
	}
	return true
}

func typeMatches(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		_, ok := v.(float64)
		return ok
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}
