package rest

import (
	"fmt"
	"net/http"

	"vinmarket-be/internal/cart"
	"vinmarket-be/internal/logger"
	"vinmarket-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.GetCart(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart.ToResponse(view))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	wineID, err := uuid.Parse(req.WineID)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: wineId must be a UUID", errBadRequest))
		return
	}

	logger.FromCtx(r.Context()).Debug("add to cart",
		zap.String("layer", "handler"),
		zap.String("wine_id", wineID.String()),
		zap.Int("quantity", req.Quantity),
	)

	view, err := h.carts.AddItem(r.Context(), actorFrom(r).ID, wineID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart.ToResponse(view))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	wineID, err := uuidParam(r, "wineId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req UpdateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.carts.UpdateItem(r.Context(), actorFrom(r).ID, wineID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart.ToResponse(view))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	wineID, err := uuidParam(r, "wineId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.carts.RemoveItem(r.Context(), actorFrom(r).ID, wineID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart.ToResponse(view))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Clear(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cart.ToResponse(view))
}
