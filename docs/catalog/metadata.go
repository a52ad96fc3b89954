// Package catalog exposes the embedded canonical trait catalog document
// (version, fingerprint, per-trait contracts) for runtime use.
package catalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// Attribute is one contract attribute entry of a document trait.
type Attribute struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// TraitDoc is the canonical document form of one catalog trait.
type TraitDoc struct {
	Name         string      `json:"name"`
	Key          string      `json:"key"`
	Version      string      `json:"version"`
	Description  string      `json:"description"`
	Owner        string      `json:"owner"`
	Dependencies []string    `json:"dependencies"`
	Required     []string    `json:"required"`
	Attributes   []Attribute `json:"attributes"`
	Operations   []string    `json:"operations"`
}

// Metadata captures the high-level metadata block from the canonical
// catalog JSON.
type Metadata struct {
	Source  string `json:"source"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Document is the parsed canonical catalog.
type Document struct {
	Metadata Metadata   `json:"metadata"`
	Traits   []TraitDoc `json:"traits"`
}

func (d Document) clone() Document {
	traits := make([]TraitDoc, len(d.Traits))
	for i, td := range d.Traits {
		td.Dependencies = append([]string(nil), td.Dependencies...)
		td.Required = append([]string(nil), td.Required...)
		td.Attributes = append([]Attribute(nil), td.Attributes...)
		td.Operations = append([]string(nil), td.Operations...)
		traits[i] = td
	}
	d.Traits = traits
	return d
}

// Canonical trait catalog JSON embedded for runtime metadata exposure.
//
//go:embed catalog.json
var catalogJSON []byte

var (
	docOnce sync.Once
	doc     Document
	docErr  error

	fpOnce sync.Once
	fp     string
)

// Load returns the parsed canonical catalog document. The embedded JSON is
// parsed once; callers receive an isolated copy.
func Load() (Document, error) {
	docOnce.Do(func() {
		docErr = json.Unmarshal(catalogJSON, &doc)
	})
	if docErr != nil {
		return Document{}, docErr
	}
	return doc.clone(), nil
}

// Version returns the catalog version declared in the canonical document.
func Version() (string, error) {
	d, err := Load()
	if err != nil {
		return "", err
	}
	return d.Metadata.Version, nil
}

// Fingerprint returns the hex sha256 of the embedded canonical document.
func Fingerprint() string {
	fpOnce.Do(func() {
		sum := sha256.Sum256(catalogJSON)
		fp = hex.EncodeToString(sum[:])
	})
	return fp
}

// Raw returns a copy of the embedded canonical document bytes.
func Raw() []byte {
	return append([]byte(nil), catalogJSON...)
}
