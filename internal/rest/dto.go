package rest

import "vinmarket-be/internal/address"

type AddItemRequest struct {
	WineID   string `json:"wineId"`
	Quantity int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	ShippingAddressID *string                     `json:"shippingAddressId,omitempty"`
	ShippingAddress   *address.CreateAddressInput `json:"shippingAddress,omitempty"`
	PaymentProvider   string                      `json:"paymentProvider"`
}

type OrderLineRequest struct {
	WineID   string `json:"wineId"`
	Quantity int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items             []OrderLineRequest          `json:"items"`
	ShippingAddressID *string                     `json:"shippingAddressId,omitempty"`
	ShippingAddress   *address.CreateAddressInput `json:"shippingAddress,omitempty"`
	PaymentProvider   string                      `json:"paymentProvider"`
}

type UpdateStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
	Carrier        *string `json:"carrier,omitempty"`
}

type PaymentRequest struct {
	ProviderData map[string]any `json:"providerData"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
