package receiving

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ovenline-erp/ovenline-erp/internal/observability"
	"github.com/ovenline-erp/ovenline-erp/internal/platform/httpx"
	"github.com/ovenline-erp/ovenline-erp/internal/rbac"
)

// Handler manages receiving endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	rbac     rbac.Middleware
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewHandler builds Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		rbac:     rbac,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers receiving routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.RoleStaff))
		r.Post("/create", h.handleCreate)
		r.Get("/list", h.handleList)
		r.Get("/{id}", h.handleDetail)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.RoleManager))
		r.Post("/{id}/complete", h.handleComplete)
		r.Post("/{id}/cancel", h.handleCancel)
	})
}

// ItemRef accepts a catalog item id as a JSON number, a numeric string, or
// the literal "new" marking an item to provision.
type ItemRef struct {
	ID    int64
	IsNew bool
}

func (ref *ItemRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.EqualFold(strings.TrimSpace(s), "new") {
			ref.IsNew = true
			return nil
		}
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("item must be an id or \"new\"")
		}
		ref.ID = id
		return nil
	}
	return json.Unmarshal(data, &ref.ID)
}

type lineRequest struct {
	Item         ItemRef `json:"item_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	SKU          string  `json:"sku"`
	Barcode      string  `json:"barcode"`
	Unit         string  `json:"unit"`
	ExpectedQty  float64 `json:"expected_quantity"`
	ReceivedQty  float64 `json:"received_quantity"`
	UnitCost     float64 `json:"unit_price"`
	SellingPrice float64 `json:"selling_price"`
	ExpiryDate   string  `json:"expiry_date"`
	BatchNumber  string  `json:"batch_number"`
	Note         string  `json:"notes"`
}

type createRequest struct {
	SupplierID   int64         `json:"supplier_id" validate:"required,gt=0"`
	POReference  string        `json:"po_reference"`
	ReceivedDate string        `json:"received_date" validate:"required"`
	Notes        string        `json:"notes"`
	Items        []lineRequest `json:"items" validate:"required,min=1"`
}

type createResponse struct {
	ID             int64   `json:"id"`
	Number         string  `json:"number"`
	TotalValue     float64 `json:"totalValue"`
	LinesRequested int     `json:"linesRequested"`
	LinesReceived  int     `json:"linesReceived"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "supplier, received date and at least one item are required")
		return
	}
	receivedDate, err := parseDate(req.ReceivedDate)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "received_date must be YYYY-MM-DD")
		return
	}

	input := CreateInput{
		SupplierID:   req.SupplierID,
		POReference:  req.POReference,
		ReceivedDate: receivedDate,
		ReceivedBy:   rbac.ActorFromContext(r.Context()),
		Notes:        req.Notes,
	}
	for _, item := range req.Items {
		line := LineInput{
			ItemID:       item.Item.ID,
			NewItem:      item.Item.IsNew,
			Name:         item.Name,
			Category:     item.Category,
			SKU:          item.SKU,
			Barcode:      item.Barcode,
			Unit:         item.Unit,
			ExpectedQty:  item.ExpectedQty,
			ReceivedQty:  item.ReceivedQty,
			UnitCost:     item.UnitCost,
			SellingPrice: item.SellingPrice,
			BatchNumber:  item.BatchNumber,
			Note:         item.Note,
		}
		if item.ExpiryDate != "" {
			expiry, err := parseDate(item.ExpiryDate)
			if err != nil {
				httpx.Fail(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
				return
			}
			line.ExpiryDate = expiry
		}
		input.Items = append(input.Items, line)
	}

	result, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveReceipt("created")
	if dropped := result.LinesRequested - result.LinesInserted; dropped > 0 {
		h.metrics.ObserveDroppedLines(dropped)
	}
	httpx.OK(w, http.StatusCreated, createResponse{
		ID:             result.ID,
		Number:         result.Number,
		TotalValue:     result.TotalValue,
		LinesRequested: result.LinesRequested,
		LinesReceived:  result.LinesInserted,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	supplierID, _ := strconv.ParseInt(q.Get("supplier_id"), 10, 64)
	filter := ListFilter{
		SupplierID: supplierID,
		Page:       page,
		Limit:      limit,
	}
	if from := q.Get("date_from"); from != "" {
		if t, err := parseDate(from); err == nil {
			filter.DateFrom = t
		}
	}
	if to := q.Get("date_to"); to != "" {
		if t, err := parseDate(to); err == nil {
			filter.DateTo = t
		}
	}

	items, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list receipts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]receiptSummaryResponse, 0, len(items))
	for _, item := range items {
		payload = append(payload, summaryResponse(item))
	}
	httpx.OKPage(w, payload, httpx.Pagination{
		Total:      pagination.Total,
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		TotalPages: pagination.TotalPages,
	})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	detail, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, detailResponse(detail))
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	if err := h.service.Approve(r.Context(), id, rbac.ActorFromContext(r.Context())); err != nil {
		h.logger.Error("complete receipt", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveReceipt("completed")
	httpx.OKMessage(w, http.StatusOK, "receipt completed and stock updated")
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	if err := h.service.Reject(r.Context(), id, rbac.ActorFromContext(r.Context())); err != nil {
		h.logger.Error("cancel receipt", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObserveReceipt("cancelled")
	httpx.OKMessage(w, http.StatusOK, "receipt cancelled")
}

// Response shapes

type receiptSummaryResponse struct {
	ID           int64   `json:"id"`
	Number       string  `json:"number"`
	SupplierID   int64   `json:"supplierId"`
	SupplierName string  `json:"supplierName"`
	ReceivedDate string  `json:"receivedDate"`
	TotalValue   float64 `json:"totalValue"`
	Status       Status  `json:"status"`
	LineCount    int     `json:"lineCount"`
	CreatedAt    string  `json:"createdAt"`
}

func summaryResponse(s ReceiptSummary) receiptSummaryResponse {
	return receiptSummaryResponse{
		ID:           s.ID,
		Number:       s.Number,
		SupplierID:   s.SupplierID,
		SupplierName: s.SupplierName,
		ReceivedDate: s.ReceivedDate.Format("2006-01-02"),
		TotalValue:   s.TotalValue,
		Status:       s.Status,
		LineCount:    s.LineCount,
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
	}
}

type lineDetailResponse struct {
	ID           int64   `json:"id"`
	ItemID       int64   `json:"itemId"`
	ItemName     string  `json:"itemName"`
	ItemSKU      string  `json:"itemSku"`
	ItemBarcode  string  `json:"itemBarcode,omitempty"`
	ItemUnit     string  `json:"itemUnit,omitempty"`
	ItemCategory string  `json:"itemCategory,omitempty"`
	ExpectedQty  float64 `json:"expectedQty"`
	ReceivedQty  float64 `json:"receivedQty"`
	UnitCost     float64 `json:"unitCost"`
	SellingPrice float64 `json:"sellingPrice,omitempty"`
	ExpiryDate   string  `json:"expiryDate,omitempty"`
	BatchNumber  string  `json:"batchNumber,omitempty"`
	Note         string  `json:"note,omitempty"`
}

type receiptDetailResponse struct {
	ID           int64                `json:"id"`
	Number       string               `json:"number"`
	SupplierID   int64                `json:"supplierId"`
	SupplierName string               `json:"supplierName"`
	POReference  string               `json:"poReference,omitempty"`
	ReceivedDate string               `json:"receivedDate"`
	ReceivedBy   int64                `json:"receivedBy"`
	ReceiverName string               `json:"receiverName"`
	Notes        string               `json:"notes,omitempty"`
	TotalValue   float64              `json:"totalValue"`
	Status       Status               `json:"status"`
	CreatedAt    string               `json:"createdAt"`
	UpdatedAt    string               `json:"updatedAt"`
	Lines        []lineDetailResponse `json:"lines"`
}

func detailResponse(d ReceiptDetail) receiptDetailResponse {
	resp := receiptDetailResponse{
		ID:           d.ID,
		Number:       d.Number,
		SupplierID:   d.SupplierID,
		SupplierName: d.SupplierName,
		POReference:  d.POReference,
		ReceivedDate: d.ReceivedDate.Format("2006-01-02"),
		ReceivedBy:   d.ReceivedBy,
		ReceiverName: d.ReceiverName,
		Notes:        d.Notes,
		TotalValue:   d.TotalValue,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
		Lines:        make([]lineDetailResponse, 0, len(d.Lines)),
	}
	for _, line := range d.Lines {
		lr := lineDetailResponse{
			ID:           line.ID,
			ItemID:       line.ItemID,
			ItemName:     line.ItemName,
			ItemSKU:      line.ItemSKU,
			ItemBarcode:  line.ItemBarcode,
			ItemUnit:     line.ItemUnit,
			ItemCategory: line.ItemCategory,
			ExpectedQty:  line.ExpectedQty,
			ReceivedQty:  line.ReceivedQty,
			UnitCost:     line.UnitCost,
			SellingPrice: line.SellingPrice,
			BatchNumber:  line.BatchNumber,
			Note:         line.Note,
		}
		if !line.ExpiryDate.IsZero() {
			lr.ExpiryDate = line.ExpiryDate.Format("2006-01-02")
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
