package rest

import (
	"net/http"

	"vinmarket-be/internal/address"
	"vinmarket-be/internal/utils"
)

func (h *Handler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.addresses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]*address.Response, 0, len(addrs))
	for _, a := range addrs {
		resp = append(resp, address.ToResponse(a))
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req address.CreateAddressInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	addr, err := h.addresses.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, address.ToResponse(addr))
}
