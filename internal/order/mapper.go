package order

import (
	"time"

	"vinmarket-be/internal/payment"
)

type ItemResponse struct {
	ID        string `json:"id"`
	WineID    string `json:"wineId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type Response struct {
	ID                string         `json:"id"`
	OrderNumber       string         `json:"orderNumber"`
	BatchID           string         `json:"batchId"`
	BuyerID           string         `json:"buyerId"`
	SellerID          string         `json:"sellerId"`
	SellerName        string         `json:"sellerName,omitempty"`
	Status            Status         `json:"status"`
	Subtotal          string         `json:"subtotal"`
	ShippingCost      string         `json:"shippingCost"`
	TotalAmount       string         `json:"totalAmount"`
	Currency          string         `json:"currency"`
	PaymentProvider   payment.Name   `json:"paymentProvider"`
	PaymentStatus     payment.Status `json:"paymentStatus"`
	PaymentID         *string        `json:"paymentId,omitempty"`
	ShippingAddressID *string        `json:"shippingAddressId,omitempty"`
	TrackingNumber    *string        `json:"trackingNumber,omitempty"`
	ShippingLabelURL  *string        `json:"shippingLabelUrl,omitempty"`
	Carrier           *string        `json:"carrier,omitempty"`
	EstimatedDelivery *string        `json:"estimatedDelivery,omitempty"`
	DeliveredAt       *string        `json:"deliveredAt,omitempty"`
	Items             []ItemResponse `json:"items"`
	CreatedAt         string         `json:"createdAt"`
	UpdatedAt         string         `json:"updatedAt"`
}

type CheckoutResponse struct {
	BatchID     string      `json:"batchId"`
	TotalOrders int         `json:"totalOrders"`
	Orders      []*Response `json:"orders"`
	GrandTotal  string      `json:"grandTotal"`
}

type PageResponse struct {
	Orders []*Response `json:"orders"`
	Total  int         `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

type PaymentResponse struct {
	Order            *Response      `json:"order"`
	Success          bool           `json:"success"`
	Status           payment.Status `json:"status"`
	TransactionID    string         `json:"transactionId,omitempty"`
	Fees             string         `json:"fees"`
	Provider         payment.Name   `json:"provider"`
	RedirectURL      string         `json:"redirectUrl,omitempty"`
	RequiresRedirect bool           `json:"requiresRedirect"`
	Error            string         `json:"error,omitempty"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func ToResponse(o *Order) *Response {
	if o == nil {
		return nil
	}

	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemResponse{
			ID:        it.ID.String(),
			WineID:    it.WineID.String(),
			Title:     it.WineTitle,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			LineTotal: it.LineTotal().StringFixed(2),
		})
	}

	var addressID *string
	if o.ShippingAddressID != nil {
		s := o.ShippingAddressID.String()
		addressID = &s
	}

	return &Response{
		ID:                o.ID.String(),
		OrderNumber:       o.OrderNumber,
		BatchID:           o.BatchID.String(),
		BuyerID:           o.BuyerID.String(),
		SellerID:          o.SellerID.String(),
		SellerName:        o.SellerName,
		Status:            o.Status,
		Subtotal:          o.Subtotal.StringFixed(2),
		ShippingCost:      o.ShippingCost.StringFixed(2),
		TotalAmount:       o.TotalAmount.StringFixed(2),
		Currency:          o.Currency,
		PaymentProvider:   o.PaymentProvider,
		PaymentStatus:     o.PaymentStatus,
		PaymentID:         o.PaymentID,
		ShippingAddressID: addressID,
		TrackingNumber:    o.TrackingNumber,
		ShippingLabelURL:  o.ShippingLabelURL,
		Carrier:           o.Carrier,
		EstimatedDelivery: formatTime(o.EstimatedDelivery),
		DeliveredAt:       formatTime(o.DeliveredAt),
		Items:             items,
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func ToResponses(orders []*Order) []*Response {
	res := make([]*Response, 0, len(orders))
	for _, o := range orders {
		res = append(res, ToResponse(o))
	}
	return res
}

func ToCheckoutResponse(r *CheckoutResult) *CheckoutResponse {
	return &CheckoutResponse{
		BatchID:     r.BatchID.String(),
		TotalOrders: r.TotalOrders,
		Orders:      ToResponses(r.Orders),
		GrandTotal:  r.GrandTotal.StringFixed(2),
	}
}

func ToPageResponse(p *Page) *PageResponse {
	return &PageResponse{
		Orders: ToResponses(p.Orders),
		Total:  p.Total,
		Page:   p.Page,
		Limit:  p.Limit,
	}
}

func ToPaymentResponse(r *PaymentResult) *PaymentResponse {
	return &PaymentResponse{
		Order:            ToResponse(r.Order),
		Success:          r.Result.Success,
		Status:           r.Result.Status,
		TransactionID:    r.Result.TransactionID,
		Fees:             r.Result.Fees.StringFixed(2),
		Provider:         r.Result.Provider,
		RedirectURL:      r.Result.RedirectURL,
		RequiresRedirect: r.Result.RequiresRedirect,
		Error:            r.Result.Error,
	}
}
