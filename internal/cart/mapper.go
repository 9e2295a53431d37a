package cart

type ItemResponse struct {
	WineID    string `json:"wineId"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	LineTotal string `json:"lineTotal"`
}

type SellerResponse struct {
	CartID       string         `json:"cartId"`
	SellerID     string         `json:"sellerId"`
	SellerName   string         `json:"sellerName"`
	Items        []ItemResponse `json:"items"`
	ItemCount    int            `json:"itemCount"`
	Subtotal     string         `json:"subtotal"`
	ShippingCost string         `json:"shippingCost"`
	Total        string         `json:"total"`
}

type Response struct {
	Sellers      []SellerResponse `json:"sellers"`
	TotalItems   int              `json:"totalItems"`
	TotalAmount  string           `json:"totalAmount"`
	ShippingCost string           `json:"shippingCost"`
	GrandTotal   string           `json:"grandTotal"`
}

func ToResponse(v *View) *Response {
	resp := &Response{
		Sellers:      make([]SellerResponse, 0, len(v.Sellers)),
		TotalItems:   v.TotalItems,
		TotalAmount:  v.TotalAmount.StringFixed(2),
		ShippingCost: v.ShippingCost.StringFixed(2),
		GrandTotal:   v.GrandTotal.StringFixed(2),
	}

	for _, sc := range v.Sellers {
		items := make([]ItemResponse, 0, len(sc.Items))
		for _, it := range sc.Items {
			items = append(items, ItemResponse{
				WineID:    it.WineID.String(),
				Title:     it.WineTitle,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice.StringFixed(2),
				LineTotal: it.LineTotal().StringFixed(2),
			})
		}

		resp.Sellers = append(resp.Sellers, SellerResponse{
			CartID:       sc.CartID.String(),
			SellerID:     sc.SellerID.String(),
			SellerName:   sc.SellerName,
			Items:        items,
			ItemCount:    sc.ItemCount,
			Subtotal:     sc.Subtotal.StringFixed(2),
			ShippingCost: sc.ShippingCost.StringFixed(2),
			Total:        sc.Total.StringFixed(2),
		})
	}

	return resp
}
