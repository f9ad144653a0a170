package content

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/voxdrill/pkg/practice"
)

// BankFile is the top-level structure of a question bank YAML file.
//
// Example:
//
//	bank:
//	  name: "System design basics"
//	  channel: system-design
//	questions:
//	  - id: sd-001
//	    question: "How does a load balancer improve availability?"
//	    answer: "A load balancer distributes traffic across servers."
//	    voice_keywords: [load balancer, latency, throughput, availability, health check, failover]
type BankFile struct {
	Bank      BankMeta            `yaml:"bank"`
	Questions []practice.Question `yaml:"questions"`
}

// BankMeta holds bank-wide metadata.
type BankMeta struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Channel is applied to every question that does not set its own.
	Channel string `yaml:"channel"`
}

// LoadBankFile reads and parses a question bank from disk.
func LoadBankFile(path string) (*BankFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open bank file %q: %w", path, err)
	}
	defer f.Close()

	bf, err := LoadBankFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("content: parse bank file %q: %w", path, err)
	}
	return bf, nil
}

// LoadBankFromReader parses question bank YAML from r. Unknown keys are
// rejected. Bank-level defaults are applied to the questions.
func LoadBankFromReader(r io.Reader) (*BankFile, error) {
	var bf BankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil {
		return nil, fmt.Errorf("content: decode bank yaml: %w", err)
	}
	for i := range bf.Questions {
		if bf.Questions[i].Channel == "" {
			bf.Questions[i].Channel = bf.Bank.Channel
		}
	}
	return &bf, nil
}

// Import adds every question of bank to repo. It stops at the first error
// and returns the number of questions added before it.
func Import(ctx context.Context, repo *MemRepository, bank *BankFile) (int, error) {
	if bank == nil {
		return 0, fmt.Errorf("content: bank must not be nil")
	}
	for i, q := range bank.Questions {
		if err := repo.Add(ctx, q); err != nil {
			return i, fmt.Errorf("content: import bank %q at index %d: %w", bank.Bank.Name, i, err)
		}
	}
	return len(bank.Questions), nil
}

// LoadRepository builds a [MemRepository] from the bank files matching the
// given glob patterns.
func LoadRepository(ctx context.Context, patterns ...string) (*MemRepository, error) {
	repo := NewMemRepository()
	for _, pattern := range patterns {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("content: bad bank pattern %q: %w", pattern, err)
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("content: no bank files match %q", pattern)
		}
		for _, path := range paths {
			bank, err := LoadBankFile(path)
			if err != nil {
				return nil, err
			}
			if _, err := Import(ctx, repo, bank); err != nil {
				return nil, err
			}
		}
	}
	return repo, nil
}
