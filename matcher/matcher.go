// Package matcher maps free text receipt lines onto catalog items.
package matcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bububa/smart-shop/agents"
	"github.com/bububa/smart-shop/catalog"
)

// NewItemAnswer is the oracle answer for a product that belongs to no tracked item
const NewItemAnswer = "new_item:custom"

const defaultTimeout = 30 * time.Second

// Kind is the outcome of a match
type Kind int

const (
	// Unmatched means no usable answer was obtained
	Unmatched Kind = iota
	// Matched means the name maps to an existing catalog item
	Matched
	// NewItem means the oracle judged the name to be a new product
	NewItem
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case NewItem:
		return "new_item"
	default:
		return "unmatched"
	}
}

// Result is the outcome of matching one name
type Result struct {
	Kind     Kind
	Category string
	Key      string
}

// Candidate is one catalog item offered to the oracle
type Candidate struct {
	Category string
	Key      string
	Name     string
}

// String renders the candidate as "category:key (Display Name)"
func (c Candidate) String() string {
	return fmt.Sprintf("%s:%s (%s)", c.Category, c.Key, c.Name)
}

// Candidates lists every catalog item in document order
func Candidates(c *catalog.Catalog) []Candidate {
	ret := make([]Candidate, 0, c.Len())
	c.Each(func(category string, key string, item catalog.Item) {
		ret = append(ret, Candidate{Category: category, Key: key, Name: item.DisplayName(key)})
	})
	return ret
}

// Oracle answers which candidate a name refers to
type Oracle interface {
	// Ask returns one "category:key" line or NewItemAnswer
	Ask(ctx context.Context, name string, candidates []Candidate) (string, error)
}

// Matcher resolves names against a catalog, falling back to an Oracle
type Matcher struct {
	oracle  Oracle
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Matcher
type Option func(*Matcher)

// WithTimeout bounds each oracle call
func WithTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		m.timeout = d
	}
}

// WithLogger set matcher logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) {
		m.logger = l
	}
}

// New returns a Matcher. A nil oracle resolves only exact names.
func New(oracle Oracle, opts ...Option) *Matcher {
	m := &Matcher{
		oracle:  oracle,
		timeout: defaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match resolves name against c. Failures of any kind yield Unmatched, never an error.
func (m *Matcher) Match(ctx context.Context, name string, c *catalog.Catalog) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{Kind: Unmatched}
	}
	candidates := Candidates(c)
	if len(candidates) == 0 {
		return Result{Kind: Unmatched}
	}
	if ret, ok := exact(name, candidates, c); ok {
		return ret
	}
	if m.oracle == nil {
		return Result{Kind: Unmatched}
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	answer, err := m.oracle.Ask(ctx, name, candidates)
	if err != nil {
		m.logger.Warn("item match failed", zap.String("item", name), zap.Error(err))
		return Result{Kind: Unmatched}
	}
	ret := ParseAnswer(answer, candidates)
	if ret.Kind == Unmatched {
		m.logger.Warn("item match answer rejected", zap.String("item", name), zap.String("answer", answer))
	}
	return ret
}

// exact matches a name whose slug is a unique item key, or whose text equals a unique original name
func exact(name string, candidates []Candidate, c *catalog.Catalog) (Result, bool) {
	slug := catalog.Slug(name)
	var (
		byKey  []Candidate
		byName []Candidate
	)
	for _, cand := range candidates {
		if cand.Key == slug {
			byKey = append(byKey, cand)
		}
		if item, ok := c.Get(cand.Category, cand.Key); ok && item.OriginalName != "" && strings.EqualFold(item.OriginalName, name) {
			byName = append(byName, cand)
		}
	}
	for _, hits := range [][]Candidate{byKey, byName} {
		if len(hits) == 1 {
			return Result{Kind: Matched, Category: hits[0].Category, Key: hits[0].Key}, true
		}
	}
	return Result{}, false
}

// ParseAnswer validates an oracle answer against the candidate set.
// Code fences, quotes, a trailing period, a trailing "(Display Name)" and
// extra lines are tolerated; comparison is case-insensitive.
func ParseAnswer(answer string, candidates []Candidate) Result {
	line := firstLine(agents.StripCodeFence(answer))
	line = strings.Trim(line, " \t\"'`")
	if idx := strings.Index(line, " ("); idx > 0 {
		line = line[:idx]
	}
	line = strings.TrimSuffix(line, ".")
	line = strings.Trim(line, " \t\"'`")
	if strings.EqualFold(line, NewItemAnswer) {
		return Result{Kind: NewItem}
	}
	category, key, ok := strings.Cut(line, ":")
	if !ok {
		return Result{Kind: Unmatched}
	}
	category = strings.TrimSpace(category)
	key = strings.TrimSpace(key)
	for _, cand := range candidates {
		if strings.EqualFold(cand.Category, category) && strings.EqualFold(cand.Key, key) {
			return Result{Kind: Matched, Category: cand.Category, Key: cand.Key}
		}
	}
	return Result{Kind: Unmatched}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
