// Package seed loads a starting item catalog from YAML.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/pkg/logger"
)

// Catalog is the file layout:
//
//	items:
//	  - name: 獺祭 二割三分
//	    category: 純米大吟醸
//	    origin: 山口
type Catalog struct {
	Items []Entry `yaml:"items"`
}

// Entry is one catalog item.
type Entry struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Origin   string `yaml:"origin"`
}

// Input converts the entry to the service input type.
func (e Entry) Input() model.ItemInput {
	return model.ItemInput{Name: e.Name, Category: model.Category(e.Category), Origin: e.Origin}
}

// Catalogue is the part of the service seeding needs.
type Catalogue interface {
	ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error)
	CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error)
}

// Load reads a catalog file.
func Load(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("%w: %s: %w", ErrRead, path, err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML. Unknown keys are rejected so typos surface.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalog{}, nil
		}
		return Catalog{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return c, nil
}

// Apply creates every catalog item whose name is not already present and
// returns how many were created. Names are compared after trimming, so
// running Apply twice is harmless.
func Apply(ctx context.Context, svc Catalogue, c Catalog) (int, error) {
	log := logger.Named("seed")

	existing, err := svc.ListItems(ctx, model.ItemFilter{})
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, it := range existing {
		have[it.Name] = struct{}{}
	}

	created := 0
	for i, e := range c.Items {
		in := e.Input().Normalize()
		if _, ok := have[in.Name]; ok {
			continue
		}
		if _, err := svc.CreateItem(ctx, in); err != nil {
			return created, fmt.Errorf("seed: item %d (%q): %w", i, e.Name, err)
		}
		have[in.Name] = struct{}{}
		created++
	}
	log.Info(ctx, "catalog applied", logger.Int("created", created), logger.Int("skipped", len(c.Items)-created))
	return created, nil
}
