package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bububa/smart-shop/receipt"
	"github.com/bububa/smart-shop/reconcile"
	"github.com/bububa/smart-shop/shopping"
)

var errBadRequest = errors.New("bad request")

// multipartOverhead leaves room for form boundaries and headers on top of the image limit
const multipartOverhead = 1 << 20

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": s.version,
		"endpoints": map[string]string{
			"/health":                     "Health check",
			"/api/process-inventory":      "Process receipt image",
			"/api/reconcile":              "Apply purchased items",
			"/api/generate-shopping-list": "Generate shopping list",
			"/api/get-grocery-list":       "Current grocery list",
			"/api/reset-grocery-list":     "Reset grocery list to default",
			"/api/upload-grocery-list":    "Replace grocery list",
			"/api/export-shopping-list":   "Download shopping list as xlsx",
		},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.clock().UTC().Format(time.RFC3339),
		"service":   ServiceName,
		"version":   s.version,
	})
}

type itemView struct {
	Name     string  `json:"name"`
	Quantity string  `json:"quantity"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type processResponse struct {
	Status         string            `json:"status"`
	Store          string            `json:"store,omitempty"`
	Date           string            `json:"date"`
	Items          []itemView        `json:"items"`
	TotalItems     int               `json:"total_items"`
	TotalValue     float64           `json:"total_value"`
	Subtotal       float64           `json:"subtotal"`
	Tax            float64           `json:"tax"`
	Total          float64           `json:"total"`
	Archive        string            `json:"archive,omitempty"`
	Note           string            `json:"note,omitempty"`
	Reconciliation *reconcile.Report `json:"reconciliation,omitempty"`
}

func (s *Server) processInventory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, err)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: No image file provided", errBadRequest))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, err := formFile(r, "image", "file")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if int64(len(data)) > s.maxUploadSize {
		s.respondError(w, r, receipt.ErrImageTooLarge)
		return
	}

	res, err := s.svc.ProcessImage(r.Context(), data)
	if errors.Is(err, receipt.ErrNoItems) {
		s.writeJSON(w, http.StatusOK, processResponse{
			Status: "success",
			Date:   s.clock().Format(time.DateOnly),
			Items:  []itemView{},
			Note:   "Image processed but could not extract items.",
		})
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProcessResponse(res.Receipt, res.Report, res.Archive, s.clock()))
}

func formFile(r *http.Request, fields ...string) (multipart.File, error) {
	for _, field := range fields {
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadRequest, err)
		}
		if header.Filename == "" {
			file.Close()
			return nil, fmt.Errorf("%w: No file selected", errBadRequest)
		}
		return file, nil
	}
	return nil, fmt.Errorf("%w: No image file provided", errBadRequest)
}

func newProcessResponse(rec *receipt.Receipt, report *reconcile.Report, archive string, now time.Time) processResponse {
	ret := processResponse{
		Status:         "success",
		Store:          rec.Store,
		Date:           rec.Date,
		Items:          make([]itemView, 0, len(rec.Items)),
		TotalItems:     len(rec.Items),
		TotalValue:     rec.TotalValue(),
		Subtotal:       rec.Subtotal,
		Tax:            rec.Tax,
		Total:          rec.Total,
		Archive:        archive,
		Reconciliation: report,
	}
	if ret.Date == "" {
		ret.Date = now.Format(time.DateOnly)
	}
	for idx, it := range rec.Items {
		view := itemView{
			Name:     it.Item,
			Quantity: fmt.Sprintf("%s @ $%.2f", shopping.FormatNumber(it.Quantity), it.Price),
			Unit:     "unit",
			Price:    it.Price,
		}
		if report != nil && idx < len(report.Lines) {
			view.Category = report.Lines[idx].Category
		}
		ret.Items = append(ret.Items, view)
	}
	return ret
}

type reconcileRequest struct {
	Date  string             `json:"date"`
	Items []receipt.LineItem `json:"items" validate:"required,min=1"`
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: items are required", errBadRequest))
		return
	}
	report, err := s.svc.Reconcile(r.Context(), req.Items)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) generateShoppingList(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.ShoppingList(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) getGroceryList(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Catalog(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	etag := fmt.Sprintf(`"%d-%s"`, s.svc.Version(), c.LastUpdated)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) resetGroceryList(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.Reset(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Status:  "success",
		Message: "Grocery list reset to default",
		Version: s.svc.Version(),
	})
}

func (s *Server) uploadGroceryList(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if _, err := s.svc.Upload(r.Context(), body); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{
		Status:  "success",
		Message: "Grocery list uploaded successfully",
		Version: s.svc.Version(),
	})
}

func (s *Server) exportShoppingList(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Export(r.Context(), &buf); err != nil {
		s.respondError(w, r, err)
		return
	}
	name := "shopping_list_" + s.clock().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write export failed", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", errBadRequest, err)
	}
	return nil
}
