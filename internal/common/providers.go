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

package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wallet-exchange-go/internal/models"
	"wallet-exchange-go/internal/pfi"

	"gopkg.in/yaml.v2"
)

var ErrUnknownProvider = errors.New("unknown provider")

type ProvidersConfig struct {
	Providers []models.LiquidityProvider `yaml:"providers"`
}

// Directory is the static list of liquidity providers, keyed by DID
type Directory struct {
	providers []models.LiquidityProvider
	byDID     map[string]models.LiquidityProvider
}

var _ pfi.Resolver = (*Directory)(nil)

func NewDirectory(providers []models.LiquidityProvider) (*Directory, error) {
	d := &Directory{byDID: make(map[string]models.LiquidityProvider, len(providers))}
	for i, p := range providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider at index %d missing name", i)
		}
		if !strings.HasPrefix(p.DID, "did:") {
			return nil, fmt.Errorf("provider %s has invalid did %q", p.Name, p.DID)
		}
		if p.Endpoint == "" {
			return nil, fmt.Errorf("provider %s missing endpoint", p.Name)
		}
		if _, dup := d.byDID[p.DID]; dup {
			return nil, fmt.Errorf("provider %s listed twice", p.DID)
		}
		d.byDID[p.DID] = p
		d.providers = append(d.providers, p)
	}
	return d, nil
}

func LoadDirectory(providersFile string) (*Directory, error) {
	var providersPath string
	if filepath.IsAbs(providersFile) {
		providersPath = providersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		providersPath = filepath.Join(wd, providersFile)
	}

	data, err := os.ReadFile(providersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", providersFile, err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", providersFile, err)
	}
	if len(config.Providers) == 0 {
		return nil, fmt.Errorf("%s lists no providers", providersFile)
	}

	return NewDirectory(config.Providers)
}

func (d *Directory) Providers() []models.LiquidityProvider {
	return append([]models.LiquidityProvider(nil), d.providers...)
}

func (d *Directory) Lookup(did string) (models.LiquidityProvider, bool) {
	p, ok := d.byDID[did]
	return p, ok
}

// Endpoint resolves a provider DID to its service URL
func (d *Directory) Endpoint(did string) (string, error) {
	p, ok := d.byDID[did]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, did)
	}
	return strings.TrimRight(p.Endpoint, "/"), nil
}
