// Package inventory ties receipt extraction, reconciliation and the shopping list together.
package inventory

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/bububa/smart-shop/catalog"
	"github.com/bububa/smart-shop/receipt"
	"github.com/bububa/smart-shop/reconcile"
	"github.com/bububa/smart-shop/shopping"
)

// Service runs the grocery inventory operations
type Service struct {
	store        *catalog.Store
	extractor    receipt.Extractor
	archive      receipt.Archive
	reconciler   *reconcile.Reconciler
	maxImageSize int64
	logger       *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithExtractor set the receipt extractor
func WithExtractor(e receipt.Extractor) Option {
	return func(s *Service) {
		s.extractor = e
	}
}

// WithArchive set the extraction archive
func WithArchive(a receipt.Archive) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithMaxImageSize set the receipt image size limit
func WithMaxImageSize(n int64) Option {
	return func(s *Service) {
		s.maxImageSize = n
	}
}

// WithLogger set service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New returns a Service over store and reconciler
func New(store *catalog.Store, reconciler *reconcile.Reconciler, opts ...Option) *Service {
	s := &Service{
		store:        store,
		reconciler:   reconciler,
		archive:      receipt.Discard{},
		maxImageSize: receipt.DefaultMaxImageSize,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessResult is the outcome of processing one receipt image
type ProcessResult struct {
	Receipt *receipt.Receipt  `json:"receipt"`
	Archive string            `json:"archive,omitempty"`
	Report  *reconcile.Report `json:"reconciliation"`
}

// ProcessImage validates and extracts a receipt image, archives the result and
// reconciles the purchased items into the catalog.
func (s *Service) ProcessImage(ctx context.Context, data []byte) (*ProcessResult, error) {
	img, err := receipt.ValidateImage(data, s.maxImageSize)
	if err != nil {
		return nil, err
	}
	if s.extractor == nil {
		return nil, receipt.ErrExtraction
	}
	start := time.Now()
	rec, err := s.extractor.Extract(ctx, img)
	if err != nil {
		s.logger.Warn("receipt extraction failed", zap.String("mime", img.MimeType), zap.Int("size", len(data)), zap.Error(err))
		return nil, err
	}
	s.logger.Info("receipt extracted",
		zap.Int("items", len(rec.Items)),
		zap.String("store", rec.Store),
		zap.String("date", rec.Date),
		zap.Duration("elapsed", time.Since(start)),
	)
	ret := &ProcessResult{Receipt: rec}
	if loc, err := s.archive.Put(ctx, receipt.NewRecord(rec)); err != nil {
		s.logger.Warn("receipt archive failed", zap.Error(err))
	} else {
		ret.Archive = loc
	}
	report, err := s.reconciler.Reconcile(ctx, rec.Items)
	if err != nil {
		return nil, err
	}
	ret.Report = report
	return ret, nil
}

// Reconcile applies lines to the catalog
func (s *Service) Reconcile(ctx context.Context, lines []receipt.LineItem) (*reconcile.Report, error) {
	return s.reconciler.Reconcile(ctx, lines)
}

// Catalog returns the current catalog
func (s *Service) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return s.store.Load(ctx)
}

// Version returns the catalog write counter
func (s *Service) Version() uint64 {
	return s.store.Version()
}

// ShoppingList generates the report from the current catalog
func (s *Service) ShoppingList(ctx context.Context) (*shopping.Report, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return shopping.Generate(c), nil
}

// Export writes the shopping list report as an xlsx workbook
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	report, err := s.ShoppingList(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := shopping.Export(&buf, report); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// Reset restores the default template
func (s *Service) Reset(ctx context.Context) (*catalog.Catalog, error) {
	c, err := s.store.Reset(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("grocery list reset", zap.Uint64("version", s.store.Version()))
	return c, nil
}

// Upload replaces the catalog with a JSON document
func (s *Service) Upload(ctx context.Context, doc []byte) (*catalog.Catalog, error) {
	c, err := catalog.Parse(doc)
	if err != nil {
		return nil, err
	}
	if err := s.store.Replace(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("grocery list uploaded", zap.Int("items", c.Len()), zap.Uint64("version", s.store.Version()))
	return c, nil
}
