package rest

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const idempotencyHeader = "Idempotency-Key"

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := actorFrom(r)
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "handler"),
		zap.String("route", "Checkout"),
	)

	var replay order.CheckoutResponse
	found, err := h.replayer.Lookup(ctx, actor.ID, key, &replay)
	if err != nil {
		log.Warn("idempotency lookup failed", zap.Error(err))
	}
	if found {
		log.Info("replaying checkout", zap.String("batch_id", replay.BatchID))
		w.Header().Set("Idempotent-Replayed", "true")
		utils.WriteJSON(w, http.StatusCreated, replay)
		return
	}

	var req CheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	addrID, err := parseOptionalUUID("shippingAddressId", req.ShippingAddressID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	provider, err := payment.ParseName(req.PaymentProvider)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.Checkout(ctx, actor, order.CheckoutInput{
		ShippingAddressID: addrID,
		ShippingAddress:   req.ShippingAddress,
		PaymentProvider:   provider,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := order.ToCheckoutResponse(res)
	if err := h.replayer.Store(ctx, actor.ID, key, resp); err != nil {
		log.Warn("failed to store checkout result", zap.Error(err))
	}

	utils.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if len(req.Items) == 0 {
		writeError(w, r, fmt.Errorf("%w: items are required", errBadRequest))
		return
	}

	lines := make([]order.LineInput, 0, len(req.Items))
	for _, it := range req.Items {
		wineID, err := uuid.Parse(it.WineID)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: wineId must be a UUID", errBadRequest))
			return
		}
		lines = append(lines, order.LineInput{WineID: wineID, Quantity: it.Quantity})
	}

	addrID, err := parseOptionalUUID("shippingAddressId", req.ShippingAddressID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	provider, err := payment.ParseName(req.PaymentProvider)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.CreateOrder(r.Context(), actorFrom(r), order.CreateInput{
		Items:             lines,
		ShippingAddressID: addrID,
		ShippingAddress:   req.ShippingAddress,
		PaymentProvider:   provider,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order.ToCheckoutResponse(res))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := h.orders.GetOrders(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToPageResponse(page))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToResponse(o))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.CancelOrder(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToResponse(o))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), actorFrom(r), id, order.StatusUpdate{
		Status:         status,
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToResponse(o))
}

// ProcessPayment answers 200 for declined payments too; the body carries
// success=false and the provider's error.
func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req PaymentRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	res, err := h.orders.ProcessPayment(r.Context(), actorFrom(r), id, req.ProviderData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToPaymentResponse(res))
}

func parseListFilter(q url.Values) (order.ListFilter, error) {
	var f order.ListFilter

	for _, raw := range splitValues(q["status"]) {
		st, err := order.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Statuses = append(f.Statuses, st)
	}

	for _, raw := range splitValues(q["paymentStatus"]) {
		st := payment.Status(strings.ToUpper(raw))
		switch st {
		case payment.StatusPending, payment.StatusCompleted, payment.StatusFailed,
			payment.StatusRefunded, payment.StatusExpired:
			f.PaymentStatuses = append(f.PaymentStatuses, st)
		default:
			return f, fmt.Errorf("%w: unknown paymentStatus %q", errBadRequest, raw)
		}
	}

	var err error
	if f.SellerID, err = optionalQueryUUID(q, "sellerId"); err != nil {
		return f, err
	}
	if f.BuyerID, err = optionalQueryUUID(q, "buyerId"); err != nil {
		return f, err
	}
	if f.DateFrom, err = parseDate(q.Get("dateFrom"), false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(q.Get("dateTo"), true); err != nil {
		return f, err
	}
	if f.Page, err = optionalInt(q, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = optionalInt(q, "limit"); err != nil {
		return f, err
	}

	return f, nil
}

// splitValues accepts both repeated parameters and comma separated lists.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func optionalQueryUUID(q url.Values, name string) (*uuid.UUID, error) {
	v := q.Get(name)
	return parseOptionalUUID(name, &v)
}

func optionalInt(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", errBadRequest, name)
	}
	return n, nil
}

// parseDate accepts RFC3339 timestamps or plain dates. A plain date used as
// an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}

	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", errBadRequest, v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
