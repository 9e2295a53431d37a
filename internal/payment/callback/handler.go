package callback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"vinmarket-be/internal/db"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/metrics"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/payment"
	"vinmarket-be/internal/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	MetricReceived         = "payment_callbacks_received"
	MetricInvalidSignature = "payment_callbacks_invalid_signature"
	MetricDuplicate        = "payment_callbacks_duplicate"
	MetricApplied          = "payment_callbacks_applied"
	MetricFailed           = "payment_callbacks_failed"
)

const (
	esitoOK = "OK"
	esitoKO = "KO"
)

// Response is always sent with 200 so the gateway stops retrying.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type LandingResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

type Handler struct {
	orders     order.Service
	payments   payment.Repository
	tx         db.Transactor
	secret     string
	storefront string
	metrics    *metrics.Registry
	tracer     trace.Tracer
}

func NewHandler(
	orders order.Service,
	payments payment.Repository,
	tx db.Transactor,
	secret, storefrontURL string,
	reg *metrics.Registry,
) *Handler {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Handler{
		orders:     orders,
		payments:   payments,
		tx:         tx,
		secret:     secret,
		storefront: strings.TrimRight(storefrontURL, "/"),
		metrics:    reg,
		tracer:     otel.Tracer("vinmarket-be/payment/callback"),
	}
}

// Callback receives the gateway's asynchronous payment result on GET or POST.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "payment.Callback")
	defer span.End()

	h.metrics.Counter(MetricReceived).Inc()
	timer := metrics.StartTimer()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "handler"),
		zap.String("route", "PaymentCallback"),
		zap.String("method", r.Method),
	)

	fields, err := readFields(r)
	if err != nil {
		log.Warn("malformed callback", zap.Error(err))
		h.metrics.Counter(MetricFailed).Inc()
		utils.WriteJSON(w, http.StatusOK, Response{Error: "malformed request"})
		return
	}

	codTrans := fields["codTrans"]
	esito := strings.ToUpper(strings.TrimSpace(fields["esito"]))
	orderRef := fields["orderId"]

	log = log.With(
		zap.String("cod_trans", codTrans),
		zap.String("esito", esito),
		zap.String("order_ref", orderRef),
	)
	span.SetAttributes(
		attribute.String("payment.cod_trans", codTrans),
		attribute.String("payment.esito", esito),
	)

	sigErr := payment.VerifyCallback(fields, h.secret)

	payload, _ := json.Marshal(fields)
	cb := &payment.Callback{
		Provider:       payment.BankGateway,
		EventID:        codTrans + ":" + esito,
		OrderRef:       orderRef,
		Payload:        payload,
		SignatureValid: sigErr == nil,
	}
	if sigErr != nil {
		// Unverified callbacks must not occupy the dedupe key of a real one.
		cb.EventID = "unverified:" + uuid.NewString()
	}

	callbackID, duplicate, err := h.payments.SaveCallback(ctx, cb)
	if err != nil {
		log.Error("failed to record callback", zap.Error(err))
		h.metrics.Counter(MetricFailed).Inc()
		utils.WriteJSON(w, http.StatusOK, Response{Error: "callback not recorded"})
		return
	}

	if sigErr != nil {
		log.Warn("callback signature mismatch")
		h.metrics.Counter(MetricInvalidSignature).Inc()
		h.markFailed(ctx, callbackID, "invalid signature")
		utils.WriteJSON(w, http.StatusOK, Response{Error: payment.ErrInvalidSignature.Error()})
		return
	}

	if duplicate {
		log.Info("duplicate callback acknowledged")
		h.metrics.Counter(MetricDuplicate).Inc()
		utils.WriteJSON(w, http.StatusOK, Response{Success: true, Duplicate: true})
		return
	}

	orderID, err := uuid.Parse(orderRef)
	if err != nil {
		log.Warn("callback without a valid order id")
		h.metrics.Counter(MetricFailed).Inc()
		h.markFailed(ctx, callbackID, order.ErrOrderNotFound.Error())
		utils.WriteJSON(w, http.StatusOK, Response{Error: order.ErrOrderNotFound.Error()})
		return
	}

	outcome := mapOutcome(esito, codTrans)
	if esito != esitoOK && esito != esitoKO {
		log.Warn("unknown result code treated as failure")
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := h.orders.ApplyPaymentOutcome(ctx, orderID, outcome); err != nil {
			return err
		}

		if codTrans != "" {
			found, err := h.payments.UpdateStatusByReference(ctx, payment.BankGateway, codTrans, outcome.PaymentStatus)
			if err != nil {
				return err
			}
			if !found {
				log.Info("no payment attempt recorded for reference")
			}
		}

		return h.payments.MarkCallbackProcessed(ctx, callbackID)
	})
	if err != nil {
		span.RecordError(err)
		h.metrics.Counter(MetricFailed).Inc()
		h.markFailed(ctx, callbackID, err.Error())

		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn("callback for unknown order")
		} else {
			log.Error("failed to apply callback", zap.Error(err))
		}
		utils.WriteJSON(w, http.StatusOK, Response{Error: err.Error()})
		return
	}

	h.metrics.Counter(MetricApplied).Inc()
	log.Info("callback applied",
		zap.String("payment_status", string(outcome.PaymentStatus)),
		zap.Duration("duration", timer.Duration()),
	)
	utils.WriteJSON(w, http.StatusOK, Response{Success: true})
}

func (h *Handler) markFailed(ctx context.Context, callbackID int64, reason string) {
	if err := h.payments.MarkCallbackFailed(ctx, callbackID, reason); err != nil {
		logger.FromCtx(ctx).Error("failed to mark callback failed",
			zap.Int64("callback_id", callbackID),
			zap.Error(err),
		)
	}
}

// mapOutcome treats every code other than OK as a failed payment.
func mapOutcome(esito, codTrans string) order.PaymentOutcome {
	if esito == esitoOK {
		return order.PaymentOutcome{
			Status:        order.StatusPaid,
			PaymentStatus: payment.StatusCompleted,
			TransactionID: codTrans,
		}
	}
	return order.PaymentOutcome{
		Status:        order.StatusCancelled,
		PaymentStatus: payment.StatusFailed,
		TransactionID: codTrans,
	}
}

// Success, Error and Cancel answer the buyer's browser landing back from the
// gateway with the storefront page to show. They never change order state.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	h.landing(w, r, "success")
}

func (h *Handler) Error(w http.ResponseWriter, r *http.Request) {
	h.landing(w, r, "error")
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.landing(w, r, "cancelled")
}

func (h *Handler) landing(w http.ResponseWriter, r *http.Request, result string) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("route", "PaymentLanding"),
		zap.String("result", result),
	)

	fields, err := readFields(r)
	if err != nil {
		fields = map[string]string{}
	}

	q := url.Values{}
	q.Set("payment", result)

	if _, signed := fields["mac"]; signed {
		if err := payment.VerifyCallback(fields, h.secret); err != nil {
			log.Warn("landing signature mismatch")
			q.Set("payment", "error")
			q.Set("reason", "invalid_signature")
		}
	}

	target := h.storefront + "/orders"
	if id, err := uuid.Parse(fields["orderId"]); err == nil {
		target += "/" + id.String()
	}

	utils.WriteJSON(w, http.StatusOK, LandingResponse{RedirectURL: target + "?" + q.Encode()})
}

// readFields returns the first value of every parameter. POST bodies take
// precedence over the query string.
func readFields(r *http.Request) (map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(r.Form))
	for k, v := range r.Form {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields, nil
}
