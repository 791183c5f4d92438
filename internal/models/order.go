package models

import (
	"encoding/json"
	"strings"

	"github.com/aquafit-brasil/pixbot-backend/internal/utils"
)

// WebhookEvent is the envelope Yampi posts to /webhook/yampi.
type WebhookEvent struct {
	Event    string        `json:"event"`
	Resource OrderResource `json:"resource"`
}

// OrderResource is the order payload. Yampi wraps several nested objects in a
// {"data": ...} envelope depending on which includes the merchant enabled, and
// spreadsheet imports use yet another shape, so every nested type unwraps the
// envelope itself and extraction helpers try the known locations in priority
// order.
type OrderResource struct {
	ID              int64        `json:"id"`
	Paid            bool         `json:"paid"`
	Status          OrderStatus  `json:"status"`
	TotalPrice      float64      `json:"total_price"`
	ValueTotal      float64      `json:"value_total"`
	Totalizers      Totalizers   `json:"totalizers"`
	CheckoutURL     string       `json:"checkout_url"`
	StatusURL       string       `json:"status_url"`
	CustomerName    string       `json:"customer_name"`
	Customer        Customer     `json:"customer"`
	ShippingAddress Address      `json:"shipping_address"`
	Spreadsheet     Spreadsheet  `json:"spreadsheet"`
	Payments        PaymentList  `json:"payments"`
	Items           ItemList     `json:"items"`
}

// unwrapData peels Yampi's {"data": ...} envelope when present.
func unwrapData(raw []byte) []byte {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		return env.Data
	}
	return raw
}

// OrderStatus accepts either a bare string or an object with alias/name.
type OrderStatus struct {
	Alias string `json:"alias"`
	Name  string `json:"name"`
}

func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	b = unwrapData(b)
	var alias string
	if err := json.Unmarshal(b, &alias); err == nil {
		s.Alias = alias
		return nil
	}
	type plain OrderStatus
	var p plain
	if err := json.Unmarshal(b, &p); err == nil {
		*s = OrderStatus(p)
	}
	return nil
}

// Paid reports whether the status field itself marks the order as settled.
func (s OrderStatus) Paid() bool {
	alias := strings.ToLower(s.Alias)
	return alias == "paid" || alias == "approved"
}

type Phone struct {
	FullNumber string `json:"full_number"`
	Mobile     string `json:"mobile"`
}

type Customer struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Phone    Phone  `json:"phone"`
}

func (c *Customer) UnmarshalJSON(b []byte) error {
	type plain Customer
	var p plain
	if err := json.Unmarshal(unwrapData(b), &p); err != nil {
		return nil
	}
	*c = Customer(p)
	return nil
}

type Address struct {
	Phone Phone `json:"phone"`
}

func (a *Address) UnmarshalJSON(b []byte) error {
	type plain Address
	var p plain
	if err := json.Unmarshal(unwrapData(b), &p); err != nil {
		return nil
	}
	*a = Address(p)
	return nil
}

// Spreadsheet is the import shape some stores use instead of a customer record.
type Spreadsheet struct {
	CustomerPhone string `json:"customer_phone"`
}

func (s *Spreadsheet) UnmarshalJSON(b []byte) error {
	type plain Spreadsheet
	var p plain
	if err := json.Unmarshal(unwrapData(b), &p); err != nil {
		return nil
	}
	*s = Spreadsheet(p)
	return nil
}

type Totalizers struct {
	Total float64 `json:"total"`
}

func (t *Totalizers) UnmarshalJSON(b []byte) error {
	type plain Totalizers
	var p plain
	if err := json.Unmarshal(unwrapData(b), &p); err != nil {
		return nil
	}
	*t = Totalizers(p)
	return nil
}

type Payment struct {
	IsPix bool   `json:"is_pix"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// Pix reports whether this payment line is a PIX charge, either by explicit
// flag or by the method name.
func (p Payment) Pix() bool {
	return p.IsPix ||
		strings.Contains(strings.ToLower(p.Name), "pix") ||
		strings.Contains(strings.ToLower(p.Alias), "pix")
}

// PaymentList accepts both {"data": [...]} and a bare array. Unknown shapes
// decode to an empty list so a weird payload classifies as "not PIX" instead
// of failing the webhook.
type PaymentList []Payment

func (l *PaymentList) UnmarshalJSON(b []byte) error {
	var items []Payment
	if err := json.Unmarshal(unwrapData(b), &items); err != nil {
		*l = nil
		return nil
	}
	*l = items
	return nil
}

type Item struct {
	ProductName string `json:"product_name"`
	SKU         SKU    `json:"sku"`
}

type SKU struct {
	Title string `json:"title"`
}

func (s *SKU) UnmarshalJSON(b []byte) error {
	type plain SKU
	var p plain
	if err := json.Unmarshal(unwrapData(b), &p); err != nil {
		return nil
	}
	*s = SKU(p)
	return nil
}

type ItemList []Item

func (l *ItemList) UnmarshalJSON(b []byte) error {
	var items []Item
	if err := json.Unmarshal(unwrapData(b), &items); err != nil {
		*l = nil
		return nil
	}
	*l = items
	return nil
}

// PaidNow reports whether this event says the order is settled, by flag or by
// status field.
func (r *OrderResource) PaidNow() bool {
	return r.Paid || r.Status.Paid()
}

// HasPixPayment reports whether any payment line item is PIX.
func (r *OrderResource) HasPixPayment() bool {
	for _, p := range r.Payments {
		if p.Pix() {
			return true
		}
	}
	return false
}

// PhoneNumber returns the customer phone digits from the first populated known
// location, or "" when the payload carries none.
func (r *OrderResource) PhoneNumber() string {
	candidates := []string{
		r.Customer.Phone.FullNumber,
		r.Customer.Phone.Mobile,
		r.ShippingAddress.Phone.FullNumber,
		r.Spreadsheet.CustomerPhone,
	}
	for _, c := range candidates {
		if digits := utils.DigitsOnly(c); digits != "" {
			return digits
		}
	}
	return ""
}

// CustomerDisplayName returns the best available customer name.
func (r *OrderResource) CustomerDisplayName() string {
	if r.Customer.Name != "" {
		return r.Customer.Name
	}
	if r.Customer.FullName != "" {
		return r.Customer.FullName
	}
	if r.CustomerName != "" {
		return r.CustomerName
	}
	return "Cliente"
}

// Amount returns the order total from whichever field the payload filled.
func (r *OrderResource) Amount() float64 {
	if r.TotalPrice != 0 {
		return r.TotalPrice
	}
	if r.ValueTotal != 0 {
		return r.ValueTotal
	}
	return r.Totalizers.Total
}

// CheckoutLink returns the recovery link to hand to the customer.
func (r *OrderResource) CheckoutLink() string {
	if r.CheckoutURL != "" {
		return r.CheckoutURL
	}
	return r.StatusURL
}

// ProductsSummary joins the ordered product names into one display string.
func (r *OrderResource) ProductsSummary() string {
	if len(r.Items) == 0 {
		return "Produtos"
	}
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		name := item.ProductName
		if name == "" {
			name = item.SKU.Title
		}
		if name == "" {
			name = "Produto"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}
