package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/okian/tasting/internal/domain/model"
	"github.com/okian/tasting/pkg/logger"
)

// Catalog gives typed access to items and reports kept in a Store.
type Catalog struct {
	store  Store
	logger logger.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithCatalogLogger sets the logger used to report skipped documents.
func WithCatalogLogger(l logger.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCatalog returns a Catalog over store.
func NewCatalog(store Store, opts ...CatalogOption) *Catalog {
	c := &Catalog{store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Named("catalog")
	}
	return c
}

// Store returns the underlying document store.
func (c *Catalog) Store() Store { return c.store }

// GetItem returns the item or ErrNotFound.
func (c *Catalog) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	if err := ValidateSegment("item id", itemID); err != nil {
		return model.Item{}, fmt.Errorf("get item: %w", ErrNotFound)
	}
	body, err := c.store.Get(ctx, ItemPath(itemID))
	if err != nil {
		return model.Item{}, err
	}
	var item model.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return model.Item{}, fmt.Errorf("decode item %s: %w: %w", itemID, ErrUnavailable, err)
	}
	item.ID = itemID
	return item, nil
}

// PutItem writes the whole item record.
func (c *Catalog) PutItem(ctx context.Context, item model.Item) error {
	if err := ValidateSegment("item id", item.ID); err != nil {
		return err
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", item.ID, err)
	}
	return c.store.Set(ctx, ItemPath(item.ID), body)
}

// ListItems returns all items, oldest first.
func (c *Catalog) ListItems(ctx context.Context) ([]model.Item, error) {
	docs, err := c.store.List(ctx, ItemsRoot)
	if err != nil {
		return nil, err
	}
	items := make([]model.Item, 0, len(docs))
	for _, d := range docs {
		id := strings.TrimPrefix(d.Path, ItemsRoot+"/")
		if strings.Contains(id, "/") {
			continue
		}
		var item model.Item
		if err := json.Unmarshal(d.Body, &item); err != nil {
			c.logger.Warn(ctx, "skipping undecodable item", logger.String("path", d.Path), logger.Error(err))
			continue
		}
		item.ID = id
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// CountItems returns the number of items.
func (c *Catalog) CountItems(ctx context.Context) (int, error) {
	items, err := c.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// DeleteItem removes the item record and then every report filed under it.
// If the second step fails the item is already gone and its orphaned reports
// remain until the delete is retried.
func (c *Catalog) DeleteItem(ctx context.Context, itemID string) error {
	if _, err := c.GetItem(ctx, itemID); err != nil {
		return err
	}
	if err := c.store.Remove(ctx, ItemPath(itemID)); err != nil {
		return err
	}
	if err := c.store.Remove(ctx, ItemReportsPath(itemID)); err != nil {
		return fmt.Errorf("remove reports of %s: %w", itemID, err)
	}
	return nil
}

// PruneOrphanReports removes the report subtree of every item id that has
// reports but no item record, and returns the removed item ids. Reports are
// listed before items, so a report filed for an item created meanwhile is
// never mistaken for an orphan.
func (c *Catalog) PruneOrphanReports(ctx context.Context) ([]string, error) {
	reports, err := c.ListAllReports(ctx)
	if err != nil {
		return nil, err
	}
	items, err := c.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	live := make(map[string]struct{}, len(items))
	for _, it := range items {
		live[it.ID] = struct{}{}
	}

	var pruned []string
	seen := make(map[string]struct{})
	for _, r := range reports {
		if _, ok := live[r.ItemID]; ok {
			continue
		}
		if _, ok := seen[r.ItemID]; ok {
			continue
		}
		seen[r.ItemID] = struct{}{}
		if err := c.store.Remove(ctx, ItemReportsPath(r.ItemID)); err != nil {
			return pruned, fmt.Errorf("remove orphan reports of %s: %w", r.ItemID, err)
		}
		pruned = append(pruned, r.ItemID)
	}
	if len(pruned) > 0 {
		c.logger.Info(ctx, "pruned orphan reports", logger.Int("items", len(pruned)))
	}
	return pruned, nil
}

// PutReport writes the whole report record at reports/{ItemID}/{Key}.
func (c *Catalog) PutReport(ctx context.Context, r model.Report) error {
	if err := ValidateSegment("item id", r.ItemID); err != nil {
		return err
	}
	if err := ValidateSegment("report key", r.Key); err != nil {
		return err
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", r.Key, err)
	}
	return c.store.Set(ctx, ReportPath(r.ItemID, r.Key), body)
}

// GetReport returns one report or ErrNotFound.
func (c *Catalog) GetReport(ctx context.Context, itemID, key string) (model.Report, error) {
	if ValidateSegment("item id", itemID) != nil || ValidateSegment("report key", key) != nil {
		return model.Report{}, fmt.Errorf("get report: %w", ErrNotFound)
	}
	path := ReportPath(itemID, key)
	body, err := c.store.Get(ctx, path)
	if err != nil {
		return model.Report{}, err
	}
	r, err := decodeReport(path, body)
	if err != nil {
		return model.Report{}, fmt.Errorf("decode report %s: %w: %w", path, ErrUnavailable, err)
	}
	return r, nil
}

// RemoveReport deletes one report. Removing a missing report is not an error.
func (c *Catalog) RemoveReport(ctx context.Context, itemID, key string) error {
	if err := ValidateSegment("item id", itemID); err != nil {
		return err
	}
	if err := ValidateSegment("report key", key); err != nil {
		return err
	}
	return c.store.Remove(ctx, ReportPath(itemID, key))
}

// ListItemReports returns every report of one item ordered by key.
func (c *Catalog) ListItemReports(ctx context.Context, itemID string) ([]model.Report, error) {
	if err := ValidateSegment("item id", itemID); err != nil {
		return []model.Report{}, nil
	}
	return c.listReports(ctx, ItemReportsPath(itemID))
}

// ListAllReports returns every report of every item.
func (c *Catalog) ListAllReports(ctx context.Context) ([]model.Report, error) {
	return c.listReports(ctx, ReportsRoot)
}

func (c *Catalog) listReports(ctx context.Context, prefix string) ([]model.Report, error) {
	docs, err := c.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	reports := make([]model.Report, 0, len(docs))
	for _, d := range docs {
		r, err := decodeReport(d.Path, d.Body)
		if err != nil {
			c.logger.Warn(ctx, "skipping undecodable report", logger.String("path", d.Path), logger.Error(err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// decodeReport decodes a report document. The path is authoritative for the
// item id and key; a malformed score decodes as 0.
func decodeReport(path string, body []byte) (model.Report, error) {
	itemID, key, ok := splitReportPath(path)
	if !ok {
		return model.Report{}, fmt.Errorf("%w: %s", ErrInvalidPath, path)
	}
	var r model.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return model.Report{}, err
	}
	r.ItemID = itemID
	r.Key = key
	return r, nil
}
