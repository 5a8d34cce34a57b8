package kresus

import (
	"fmt"
	"os"
	"strings"

	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"gopkg.in/yaml.v3"
)

// DefaultCounterparty names the non-owned side of a transaction when the
// mapping sets none.
const DefaultCounterparty = "Unknown"

// AccountMapping maps one Kresus account onto a Firefly account.
type AccountMapping struct {
	Kresus  string `yaml:"kresus"`  // custom label, or bank label
	Firefly string `yaml:"firefly"` // defaults to Kresus
	Type    string `yaml:"type"`    // defaults to asset
}

// MappingConfig represents the complete account mapping configuration.
type MappingConfig struct {
	Counterparty    string           `yaml:"counterparty"`
	DefaultCurrency string           `yaml:"default_currency"`
	Accounts        []AccountMapping `yaml:"accounts"`
	Exclude         []string         `yaml:"exclude"`
}

// Mapping decides which Kresus accounts are synchronized and under which
// Firefly name.
type Mapping struct {
	config   MappingConfig
	accounts map[string]AccountMapping
	excluded map[string]bool
}

// LoadMapping reads a mapping from a YAML file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping parses a YAML mapping.
func ParseMapping(data []byte) (*Mapping, error) {
	var config MappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return NewMapping(config)
}

// NewMapping validates config and builds its lookup tables.
func NewMapping(config MappingConfig) (*Mapping, error) {
	if strings.TrimSpace(config.Counterparty) == "" {
		config.Counterparty = DefaultCounterparty
	}

	m := &Mapping{
		config:   config,
		accounts: make(map[string]AccountMapping, len(config.Accounts)),
		excluded: make(map[string]bool, len(config.Exclude)),
	}

	for i, a := range config.Accounts {
		if strings.TrimSpace(a.Kresus) == "" {
			return nil, fmt.Errorf("accounts[%d]: kresus label is required", i)
		}
		if strings.TrimSpace(a.Firefly) == "" {
			a.Firefly = a.Kresus
		}
		if a.Type == "" {
			a.Type = string(ledger.AccountTypeAsset)
		}
		if t := ledger.AccountType(a.Type); t != ledger.AccountTypeAsset && t != ledger.AccountTypeLiability {
			return nil, fmt.Errorf("accounts[%d]: type %q must be asset or liability", i, a.Type)
		}
		key := ledger.NormalizeName(a.Kresus)
		if _, dup := m.accounts[key]; dup {
			return nil, fmt.Errorf("accounts[%d]: %q is mapped twice", i, a.Kresus)
		}
		m.accounts[key] = a
	}
	for _, label := range config.Exclude {
		m.excluded[ledger.NormalizeName(label)] = true
	}

	return m, nil
}

// Lookup returns the mapping of a Kresus account label. Excluded and
// unmapped labels are not found.
func (m *Mapping) Lookup(label string) (AccountMapping, bool) {
	key := ledger.NormalizeName(label)
	if m.excluded[key] {
		return AccountMapping{}, false
	}
	a, ok := m.accounts[key]
	return a, ok
}

// Counterparty returns the name used for the non-owned side of transactions.
func (m *Mapping) Counterparty() string {
	return m.config.Counterparty
}

// DefaultCurrency returns the currency of accounts that carry none.
func (m *Mapping) DefaultCurrency() string {
	return m.config.DefaultCurrency
}
