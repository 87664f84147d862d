// Package reconcile applies purchased receipt lines to the grocery catalog.
package reconcile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/matcher"
	"github.com/bububa/smart-shop/receipt"
)

// Outcome is what happened to one receipt line
type Outcome string

const (
	// OutcomeMatched added the quantity to a tracked item
	OutcomeMatched Outcome = "matched"
	// OutcomeCreated added a new custom item
	OutcomeCreated Outcome = "created"
	// OutcomeMerged added the quantity to an existing custom item
	OutcomeMerged Outcome = "merged"
	// OutcomeSkipped left the catalog untouched
	OutcomeSkipped Outcome = "skipped"
)

// Line reports the outcome of one receipt line
type Line struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Outcome  Outcome `json:"outcome"`
	Category string  `json:"category,omitempty"`
	Key      string  `json:"key,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Report summarizes one reconciliation
type Report struct {
	Lines       []Line `json:"lines"`
	Matched     int    `json:"matched"`
	Created     int    `json:"created"`
	Merged      int    `json:"merged"`
	Skipped     int    `json:"skipped"`
	Version     uint64 `json:"version"`
	LastUpdated string `json:"last_updated"`
}

func (r *Report) add(line Line) {
	r.Lines = append(r.Lines, line)
	switch line.Outcome {
	case OutcomeMatched:
		r.Matched++
	case OutcomeCreated:
		r.Created++
	case OutcomeMerged:
		r.Merged++
	default:
		r.Skipped++
	}
}

// Store is the catalog access the reconciler needs
type Store interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
	Update(ctx context.Context, fn func(*catalog.Catalog) error) (*catalog.Catalog, uint64, error)
	Version() uint64
}

// Reconciler applies receipt lines to a catalog store
type Reconciler struct {
	store   Store
	matcher *matcher.Matcher
	logger  *zap.Logger
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithLogger set reconciler logger
func WithLogger(l *zap.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New returns a Reconciler
func New(store Store, m *matcher.Matcher, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   store,
		matcher: m,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type plan struct {
	line  receipt.LineItem
	name  string
	match matcher.Result
}

// Reconcile matches every line against a snapshot of the catalog and then applies
// all quantities in one store update. Nothing is deduplicated: applying the same
// lines twice counts them twice.
func (r *Reconciler) Reconcile(ctx context.Context, lines []receipt.LineItem) (*Report, error) {
	snapshot, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	skipped := make(map[int]Line, len(lines))
	plans := make([]plan, 0, len(lines))
	for idx, line := range lines {
		name := strings.TrimSpace(line.Item)
		switch {
		case name == "":
			skipped[idx] = Line{Item: line.Item, Quantity: line.Quantity, Outcome: OutcomeSkipped, Reason: "empty item name"}
			continue
		case line.Quantity <= 0:
			skipped[idx] = Line{Item: name, Quantity: line.Quantity, Outcome: OutcomeSkipped, Reason: "non-positive quantity"}
			continue
		case catalog.Slug(name) == "":
			skipped[idx] = Line{Item: name, Quantity: line.Quantity, Outcome: OutcomeSkipped, Reason: "item name has no usable characters"}
			continue
		}
		res := r.matcher.Match(ctx, name, snapshot)
		r.logger.Debug("receipt line matched",
			zap.String("item", name),
			zap.Stringer("kind", res.Kind),
			zap.String("category", res.Category),
			zap.String("key", res.Key),
		)
		plans = append(plans, plan{line: line, name: name, match: res})
	}

	report := &Report{
		Version:     r.store.Version(),
		LastUpdated: snapshot.LastUpdated,
	}
	var applied []Line
	// an all-skipped batch leaves the document and its version alone
	if len(plans) > 0 {
		updated, version, err := r.store.Update(ctx, func(c *catalog.Catalog) error {
			applied = applied[:0]
			for _, p := range plans {
				applied = append(applied, apply(c, p))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		report.Version = version
		report.LastUpdated = updated.LastUpdated
	}

	var next int
	for idx := range lines {
		if line, ok := skipped[idx]; ok {
			report.add(line)
			continue
		}
		report.add(applied[next])
		next++
	}
	r.logger.Info("receipt reconciled",
		zap.Int("matched", report.Matched),
		zap.Int("created", report.Created),
		zap.Int("merged", report.Merged),
		zap.Int("skipped", report.Skipped),
		zap.Uint64("version", report.Version),
	)
	return report, nil
}

func apply(c *catalog.Catalog, p plan) Line {
	qty := p.line.Quantity
	if p.match.Kind == matcher.Matched {
		if item, ok := c.Get(p.match.Category, p.match.Key); ok {
			item.Quantity += qty
			c.Set(p.match.Category, p.match.Key, item)
			return Line{Item: p.name, Quantity: qty, Outcome: OutcomeMatched, Category: p.match.Category, Key: p.match.Key}
		}
	}
	key := catalog.Slug(p.name)
	if item, ok := c.Get(catalog.CustomCategory, key); ok {
		item.Quantity += qty
		c.Set(catalog.CustomCategory, key, item)
		return Line{Item: p.name, Quantity: qty, Outcome: OutcomeMerged, Category: catalog.CustomCategory, Key: key}
	}
	c.Set(catalog.CustomCategory, key, catalog.Item{
		Quantity:     qty,
		MaxPerWeek:   2 * qty,
		Unit:         catalog.DefaultUnit,
		OriginalName: p.name,
	})
	return Line{Item: p.name, Quantity: qty, Outcome: OutcomeCreated, Category: catalog.CustomCategory, Key: key}
}
