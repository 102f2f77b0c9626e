package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/donation-checkout/internal/core/domain"
	"github.com/rl1809/donation-checkout/internal/core/service"
)

const sessionHeader = "X-Session-ID"

type HTTPHandler struct {
	svc    Services
	logger *zap.Logger
}

type MemorialPayload struct {
	InMemory      bool   `json:"in_memory"`
	Name          string `json:"in_memory_name"`
	CardRequested bool   `json:"in_memory_card"`
}

type DonationHTTPRequest struct {
	Frequency string          `json:"frequency"`
	Amount    rawAmount       `json:"amount"`
	Memorial  MemorialPayload `json:"memorial"`
}

type MiniDonationHTTPRequest struct {
	Frequency string    `json:"frequency"`
	Amount    rawAmount `json:"amount"`
}

type PaneHTTPRequest struct {
	Donate   bool            `json:"donate"`
	Amount   rawAmount       `json:"amount"`
	Memorial MemorialPayload `json:"memorial"`
}

type CurrencyHTTPRequest struct {
	CurrencyCode string `json:"currency_code"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type OutcomeHTTPResponse struct {
	Success  bool               `json:"success"`
	Redirect string             `json:"redirect"`
	OrderID  string             `json:"order_id,omitempty"`
	Monthly  *MonthlyHTTPPledge `json:"monthly,omitempty"`
}

type MonthlyHTTPPledge struct {
	Amount       string          `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Memorial     MemorialPayload `json:"memorial"`
}

type OptionHTTPResponse struct {
	Amount string `json:"amount"`
	Label  string `json:"label"`
}

type PaneHTTPResponse struct {
	Visible  bool            `json:"visible"`
	Summary  string          `json:"summary"`
	Donate   bool            `json:"donate"`
	Amount   string          `json:"amount"`
	Memorial MemorialPayload `json:"memorial"`
}

type ItemHTTPResponse struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Title        string          `json:"title"`
	Amount       string          `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Quantity     int             `json:"quantity"`
	Memorial     MemorialPayload `json:"memorial"`
}

type OrderHTTPResponse struct {
	ID           string             `json:"id"`
	CurrencyCode string             `json:"currency_code"`
	Total        string             `json:"total"`
	Version      int                `json:"version"`
	Items        []ItemHTTPResponse `json:"items"`
}

func NewHTTPHandler(svc Services, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, h.requestLogger)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/donations", func(r chi.Router) {
			r.Get("/options", h.DonationOptions)
			r.Post("/", h.SubmitDonation)
			r.Post("/mini", h.SubmitMiniDonation)
		})
		r.Put("/session/currency", h.SwitchCurrency)
		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Get("/donation", h.GetCheckoutPane)
			r.Put("/donation", h.SubmitCheckoutPane)
		})
	})

	return r
}

func (h *HTTPHandler) SubmitDonation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req DonationHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	out, err := h.svc.Form.Submit(r.Context(), sess, service.DonationFormInput{
		Frequency: req.Frequency,
		Amount:    string(req.Amount),
		Memorial:  req.Memorial.toDomain(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *HTTPHandler) SubmitMiniDonation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req MiniDonationHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	out, err := h.svc.Mini.Submit(r.Context(), sess, req.Frequency, string(req.Amount))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcomeResponse(out))
}

func (h *HTTPHandler) DonationOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	freq, err := domain.ParseFrequency(r.URL.Query().Get("frequency"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: err.Error(), Field: "frequency"})
		return
	}

	options, code, err := h.svc.Form.Options(r.Context(), sess, freq)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]OptionHTTPResponse, 0, len(options))
	for _, o := range options {
		resp = append(resp, OptionHTTPResponse{Amount: o.Amount.String(), Label: o.Label})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currency_code": code,
		"frequency":     freq,
		"options":       resp,
	})
}

func (h *HTTPHandler) SwitchCurrency(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CurrencyHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}
	if err := domain.ValidateCurrencyCode(req.CurrencyCode); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.svc.Currencies.SetSessionCurrency(r.Context(), sess.ID, req.CurrencyCode); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "currency_code": req.CurrencyCode})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.Load(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse(order))
}

func (h *HTTPHandler) GetCheckoutPane(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.Load(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paneResponse(h.svc.Pane, order))
}

func (h *HTTPHandler) SubmitCheckoutPane(w http.ResponseWriter, r *http.Request) {
	var req PaneHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	order, err := h.svc.Pane.Submit(r.Context(), chi.URLParam(r, "orderID"), service.PaneInput{
		Donate:   req.Donate,
		Amount:   string(req.Amount),
		Memorial: req.Memorial.toDomain(),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, paneResponse(h.svc.Pane, order))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "missing " + sessionHeader + " header"})
		return domain.Session{}, false
	}
	return domain.Session{ID: id, StoreID: h.svc.StoreID}, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorHTTPResponse{Message: ve.Message, Field: ve.Field})
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, ErrorHTTPResponse{Message: "order not found"})
	case errors.Is(err, domain.ErrConcurrentModification):
		writeJSON(w, http.StatusConflict, ErrorHTTPResponse{Message: "order was modified, reload and retry"})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorHTTPResponse{Message: "internal error"})
	}
}

func (h *HTTPHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (m MemorialPayload) toDomain() domain.Memorial {
	return domain.Memorial{InMemory: m.InMemory, Name: m.Name, CardRequested: m.CardRequested}
}

func memorialPayload(m domain.Memorial) MemorialPayload {
	return MemorialPayload{InMemory: m.InMemory, Name: m.Name, CardRequested: m.CardRequested}
}

func outcomeResponse(out *service.FormOutcome) OutcomeHTTPResponse {
	if out.Monthly != nil {
		return OutcomeHTTPResponse{
			Success:  true,
			Redirect: "monthly_donation",
			Monthly: &MonthlyHTTPPledge{
				Amount:       out.Monthly.Amount.String(),
				CurrencyCode: out.Monthly.CurrencyCode,
				Memorial:     memorialPayload(out.Monthly.Memorial),
			},
		}
	}
	return OutcomeHTTPResponse{Success: true, Redirect: "checkout", OrderID: out.OrderID}
}

func orderResponse(order *domain.Order) OrderHTTPResponse {
	total := order.TotalPrice()
	resp := OrderHTTPResponse{
		ID:           order.ID,
		CurrencyCode: total.CurrencyCode,
		Total:        total.Number.String(),
		Version:      order.Version,
		Items:        make([]ItemHTTPResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, ItemHTTPResponse{
			ID:           item.ID,
			Kind:         string(item.Kind),
			Title:        item.Title,
			Amount:       item.UnitPrice.Number.String(),
			CurrencyCode: item.UnitPrice.CurrencyCode,
			Quantity:     item.Quantity,
			Memorial:     memorialPayload(item.Memorial),
		})
	}
	return resp
}

func paneResponse(pane *service.CheckoutPane, order *domain.Order) PaneHTTPResponse {
	defaults := pane.Defaults(order)
	return PaneHTTPResponse{
		Visible:  pane.Visible(order),
		Summary:  pane.Summary(order),
		Donate:   defaults.Donate,
		Amount:   defaults.Amount.String(),
		Memorial: memorialPayload(defaults.Memorial),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
