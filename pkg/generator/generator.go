// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package generator renders validated schemas to target-language
// source code. One backend exists per target runtime; all of them
// derive layout and sizing from pkg/schema so the targets cannot
// drift apart on the wire.
package generator

import (
	"fmt"
	"sort"

	"github.com/Thermoquad/bakelite/pkg/schema"
)

// Backend generates code for one target language.
type Backend interface {
	// Name is the language selector used on the command line.
	Name() string
	// Generate renders the protocol definition to source text.
	Generate(s *schema.Schema) ([]byte, error)
	// Runtime returns the language's runtime support artifact. Its
	// content depends only on the target, never on a schema.
	Runtime() ([]byte, error)
}

var backends = map[string]Backend{}

func register(b Backend) {
	backends[b.Name()] = b
}

// Lookup returns the backend for a language selector.
func Lookup(language string) (Backend, error) {
	b, ok := backends[language]
	if !ok {
		return nil, fmt.Errorf("unknown language %q (have %v)", language, Languages())
	}
	return b, nil
}

// Languages lists the registered language selectors.
func Languages() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
