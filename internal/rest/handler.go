package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/metrics"
	"vinmarket-be/internal/order"
	"vinmarket-be/internal/pkg/cache"
	"vinmarket-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Carts     cart.Service
	Orders    order.Service
	Addresses address.Service
	Replayer  *cache.Replayer
	Metrics   *metrics.Registry
	DB        Pinger
}

type Handler struct {
	carts     cart.Service
	orders    order.Service
	addresses address.Service
	replayer  *cache.Replayer
	metrics   *metrics.Registry
	db        Pinger
}

func NewHandler(d Deps) *Handler {
	reg := d.Metrics
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Handler{
		carts:     d.Carts,
		orders:    d.Orders,
		addresses: d.Addresses,
		replayer:  d.Replayer,
		metrics:   reg,
		db:        d.DB,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			utils.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	utils.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if !utils.IsAdmin(r.Context()) {
		writeError(w, r, order.ErrForbidden)
		return
	}
	utils.WriteJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// actorFrom builds the caller identity set by the auth middleware.
func actorFrom(r *http.Request) order.Actor {
	id, _ := utils.GetUserIDFromContext(r.Context())
	return order.Actor{ID: id, Role: utils.GetUserRoleFromContext(r.Context())}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a UUID", errBadRequest, name)
	}
	return id, nil
}

func parseOptionalUUID(field string, v *string) (*uuid.UUID, error) {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*v))
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a UUID", errBadRequest, field)
	}
	return &id, nil
}
