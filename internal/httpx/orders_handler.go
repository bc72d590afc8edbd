package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shopico/shop-api/internal/orders"
)

type OrdersHandler struct {
	Svc *orders.Service
}

func (h *OrdersHandler) Register(r chi.Router, a *Auth) {
	r.Group(func(r chi.Router) {
		r.Use(a.Authenticate)
		r.Post("/", h.create)
		r.Get("/myorders", h.listMine)
		r.Get("/{id}", h.get)
		r.Get("/{id}/history", h.history)
		r.Delete("/{id}", h.cancel)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.listAll)
			r.Put("/{id}/status", h.updateStatus)
		})
	})
}

type orderItemReq struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type shippingAddressReq struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type createOrderReq struct {
	Items           []orderItemReq     `json:"items" validate:"required,min=1,dive"`
	TotalAmount     float64            `json:"totalAmount" validate:"gte=0"`
	ShippingAddress shippingAddressReq `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u := userFrom(r.Context())

	items := make([]orders.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.LineItem{ProductID: it.Product, Quantity: it.Quantity})
	}

	o, err := h.Svc.Place(r.Context(), orders.PlaceOrderInput{
		UserID:      u.ID,
		Items:       items,
		TotalAmount: req.TotalAmount,
		ShippingAddress: orders.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	out, err := h.Svc.ListMine(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	o, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"), orders.Actor{ID: u.ID, Role: u.Role})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) history(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	entries, err := h.Svc.History(r.Context(), chi.URLParam(r, "id"), orders.Actor{ID: u.ID, Role: u.Role})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type updateStatusReq struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	u := userFrom(r.Context())

	o, err := h.Svc.UpdateStatus(r.Context(), chi.URLParam(r, "id"),
		orders.Status(req.Status), req.Comment, u.ID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type cancelReq struct {
	Comment string `json:"comment"`
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	_ = decodeBody(r, &req)
	u := userFrom(r.Context())

	_, err := h.Svc.Cancel(r.Context(), chi.URLParam(r, "id"), req.Comment,
		orders.Actor{ID: u.ID, Role: u.Role})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled successfully"})
}

// writeOrderError maps the orders error taxonomy onto HTTP statuses.
// Forbidden deliberately maps to 401, matching the reviewed interface.
func writeOrderError(w http.ResponseWriter, err error) {
	var notFound *orders.ProductNotFoundError
	var short *orders.InsufficientStockError

	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &short):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orders.ErrForbidden):
		writeError(w, http.StatusUnauthorized, "Not authorized for this order")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, "Order cannot be changed in current status")
	case errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
