package service

import (
	"context"
	"fmt"

	"github.com/okian/tasting/internal/domain/label"
	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/pkg/logger"
	"github.com/okian/tasting/pkg/metrics"
)

// CreateItem stores a new item with an empty aggregate.
func (s *Service) CreateItem(ctx context.Context, in model.ItemInput) (model.Item, error) {
	in = in.Normalize()
	if err := model.Validate(in); err != nil {
		return model.Item{}, err
	}

	now := s.now()
	item := in.Apply(model.Item{ID: model.NewItemID(now), CreatedAt: now.UTC()})
	if err := s.catalog.PutItem(ctx, item); err != nil {
		return model.Item{}, fmt.Errorf("create item: %w", err)
	}
	s.logger.Info(ctx, "item created", logger.String("item_id", item.ID), logger.String("name", item.Name))
	return item, nil
}

// UpdateItem replaces the descriptive fields of an item. The aggregate and
// creation time are kept.
func (s *Service) UpdateItem(ctx context.Context, itemID string, in model.ItemInput) (model.Item, error) {
	in = in.Normalize()
	if err := model.Validate(in); err != nil {
		return model.Item{}, err
	}

	item, err := s.catalog.GetItem(ctx, itemID)
	if err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	item = in.Apply(item)
	if err := s.catalog.PutItem(ctx, item); err != nil {
		return model.Item{}, fmt.Errorf("update item: %w", err)
	}
	return item, nil
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	return s.catalog.GetItem(ctx, itemID)
}

// ListItems returns the items passing filter, oldest first.
func (s *Service) ListItems(ctx context.Context, filter model.ItemFilter) ([]model.Item, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := items[:0]
	for _, it := range items {
		if filter.Match(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

// DeleteItem removes an item together with its reports.
func (s *Service) DeleteItem(ctx context.Context, itemID string) error {
	if err := s.catalog.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	s.logger.Info(ctx, "item deleted", logger.String("item_id", itemID))
	return nil
}

// LabelGuess is the outcome of scanning label text.
type LabelGuess struct {
	Category model.Category `json:"category"`
	Lines    []string       `json:"lines"`
}

// InferCategory guesses an item category from recognised label text.
// Category is empty when no keyword matched.
func (s *Service) InferCategory(_ context.Context, text string) LabelGuess {
	category := label.InferCategory(label.Lines(text), label.DefaultKeywords())
	metrics.RecordLabelInference(category != "")
	return LabelGuess{Category: category, Lines: label.Collect(label.Lines(text))}
}
