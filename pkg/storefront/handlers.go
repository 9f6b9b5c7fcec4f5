package storefront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/copperkettle/storefront/pkg/audit"
	"github.com/copperkettle/storefront/pkg/contextkeys"
	"github.com/copperkettle/storefront/pkg/httputil"
	"github.com/copperkettle/storefront/pkg/middleware"
	"github.com/copperkettle/storefront/pkg/observability"
)

// AuditLogger is the slice of the audit surface the shop handlers need
type AuditLogger interface {
	Log(ctx context.Context, event *audit.Event) error
}

// Handlers serves the shop HTTP surface. All routes assume the request gate
// already ran: protected paths carry a live profile on the context.
type Handlers struct {
	store  *Store
	audit  AuditLogger
	logger *observability.Logger
}

// NewHandlers creates the shop handlers. auditLogger may be nil.
func NewHandlers(store *Store, auditLogger AuditLogger, logger *observability.Logger) *Handlers {
	return &Handlers{store: store, audit: auditLogger, logger: logger}
}

// Register mounts the shop routes on the router
func (h *Handlers) Register(router *mux.Router) {
	// Public
	router.HandleFunc("/menu", h.ListMenu).Methods(http.MethodGet)

	// Customer (user tier, enforced by the gate)
	router.HandleFunc("/order", h.CreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/order", h.ListMyOrders).Methods(http.MethodGet)
	router.HandleFunc("/order/{id:[0-9]+}", h.GetMyOrder).Methods(http.MethodGet)
	router.HandleFunc("/gift-card", h.PurchaseGiftCard).Methods(http.MethodPost)
	router.HandleFunc("/gift-card/redeem", h.RedeemGiftCard).Methods(http.MethodPost)
	router.HandleFunc("/loyalty", h.GetLoyalty).Methods(http.MethodGet)

	// Staff (admin tier, enforced by the gate)
	router.HandleFunc("/admin/menu", h.AdminListMenu).Methods(http.MethodGet)
	router.HandleFunc("/admin/menu", h.AdminCreateMenuItem).Methods(http.MethodPost)
	router.HandleFunc("/admin/menu/{id:[0-9]+}", h.AdminUpdateMenuItem).Methods(http.MethodPut)
	router.HandleFunc("/admin/menu/{id:[0-9]+}", h.AdminDeleteMenuItem).Methods(http.MethodDelete)
	router.HandleFunc("/admin/orders", h.AdminListOrders).Methods(http.MethodGet)
	router.HandleFunc("/admin/orders/{id:[0-9]+}/status", h.AdminUpdateOrderStatus).Methods(http.MethodPut)
}

// ListMenu handles GET /menu. Public: available items only.
func (h *Handlers) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context(), false)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to list menu")
		httputil.WriteInternalError(w, err)
		return
	}
	if items == nil {
		items = []*MenuItem{}
	}
	httputil.WriteSuccess(w, items)
}

type createOrderRequest struct {
	Items []struct {
		MenuItemID int64 `json:"menu_item_id"`
		Quantity   int   `json:"quantity"`
	} `json:"items"`
}

// CreateOrder handles POST /order. Line prices are captured from the
// current menu; unavailable items are rejected.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	var req createOrderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		httputil.WriteBadRequest(w, ErrEmptyOrder.Error())
		return
	}

	order := &Order{SubjectID: prof.ID}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			httputil.WriteBadRequest(w, "quantity must be positive")
			return
		}
		item, err := h.store.GetMenuItem(r.Context(), line.MenuItemID)
		if errors.Is(err, ErrNotFound) {
			httputil.WriteBadRequest(w, fmt.Sprintf("unknown menu item %d", line.MenuItemID))
			return
		} else if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		if !item.Available {
			httputil.WriteBadRequest(w, fmt.Sprintf("menu item %q is unavailable", item.Name))
			return
		}
		order.Items = append(order.Items, OrderItem{
			MenuItemID: item.ID,
			Quantity:   line.Quantity,
			PriceCents: item.PriceCents,
		})
	}

	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to create order")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, order)
}

// ListMyOrders handles GET /order
func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())
	limit := httputil.ParseQueryInt(r, "limit", 50)
	offset := httputil.ParseQueryInt(r, "offset", 0)

	orders, err := h.store.ListOrdersBySubject(r.Context(), prof.ID, limit, offset)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	httputil.WriteSuccess(w, orders)
}

// GetMyOrder handles GET /order/{id}. Customers see their own orders only;
// someone else's order id reads as not found.
func (h *Handlers) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	order, err := h.store.GetOrder(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFound(w, err.Error())
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if order.SubjectID != prof.ID && !prof.Staff() {
		httputil.WriteNotFound(w, ErrNotFound.Error())
		return
	}
	httputil.WriteSuccess(w, order)
}

type purchaseGiftCardRequest struct {
	BalanceCents int64 `json:"balance_cents"`
	ValidDays    int   `json:"valid_days"`
}

// PurchaseGiftCard handles POST /gift-card
func (h *Handlers) PurchaseGiftCard(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	var req purchaseGiftCardRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.BalanceCents <= 0 {
		httputil.WriteBadRequest(w, "balance must be positive")
		return
	}
	if req.ValidDays <= 0 {
		req.ValidDays = 365
	}

	card, err := h.store.IssueGiftCard(r.Context(), prof.ID, req.BalanceCents,
		time.Now().AddDate(0, 0, req.ValidDays))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditEvent(r, audit.EventTypeGiftCardIssued, prof.ID, card.Code, "gift card issued")
	httputil.WriteCreated(w, card)
}

type redeemGiftCardRequest struct {
	Code        string `json:"code"`
	AmountCents int64  `json:"amount_cents"`
}

// RedeemGiftCard handles POST /gift-card/redeem
func (h *Handlers) RedeemGiftCard(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	var req redeemGiftCardRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Code == "" || req.AmountCents <= 0 {
		httputil.WriteBadRequest(w, "code and positive amount are required")
		return
	}

	card, err := h.store.RedeemGiftCard(r.Context(), req.Code, req.AmountCents)
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
		return
	case errors.Is(err, ErrGiftCardInactive), errors.Is(err, ErrInsufficientBalance):
		httputil.WriteBadRequest(w, err.Error())
		return
	case err != nil:
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditEvent(r, audit.EventTypeGiftCardRedeemed, prof.ID, card.Code, "gift card redeemed")
	httputil.WriteSuccess(w, card)
}

// GetLoyalty handles GET /loyalty
func (h *Handlers) GetLoyalty(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	acct, err := h.store.GetLoyaltyAccount(r.Context(), prof.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, acct)
}

// AdminListMenu handles GET /admin/menu: the full menu, unavailable included
func (h *Handlers) AdminListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context(), true)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if items == nil {
		items = []*MenuItem{}
	}
	httputil.WriteSuccess(w, items)
}

type menuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Available   bool   `json:"available"`
}

// AdminCreateMenuItem handles POST /admin/menu
func (h *Handlers) AdminCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())

	var req menuItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" || req.PriceCents < 0 {
		httputil.WriteBadRequest(w, "name and non-negative price are required")
		return
	}
	if req.Category == "" {
		req.Category = "general"
	}

	item := &MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Available:   req.Available,
	}
	if err := h.store.CreateMenuItem(r.Context(), item); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditEvent(r, audit.EventTypeMenuItemChange, prof.ID, fmt.Sprintf("%d", item.ID), "menu item created")
	httputil.WriteCreated(w, item)
}

// AdminUpdateMenuItem handles PUT /admin/menu/{id}
func (h *Handlers) AdminUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req menuItemRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	updated, err := h.store.UpdateMenuItem(r.Context(), &MenuItem{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Available:   req.Available,
	})
	if errors.Is(err, ErrNotFound) {
		httputil.WriteNotFound(w, err.Error())
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditEvent(r, audit.EventTypeMenuItemChange, prof.ID, fmt.Sprintf("%d", id), "menu item updated")
	httputil.WriteSuccess(w, updated)
}

// AdminDeleteMenuItem handles DELETE /admin/menu/{id}. Items that appear on
// existing orders cannot be removed; those are marked unavailable via PUT.
func (h *Handlers) AdminDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	err = h.store.DeleteMenuItem(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
		return
	case errors.Is(err, ErrMenuItemInUse):
		httputil.WriteConflict(w, "menu item appears on existing orders; mark it unavailable instead")
		return
	case err != nil:
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditEvent(r, audit.EventTypeMenuItemChange, prof.ID, fmt.Sprintf("%d", id), "menu item deleted")
	httputil.WriteNoContent(w)
}

// AdminListOrders handles GET /admin/orders?status=pending
func (h *Handlers) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	status := OrderStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = OrderStatusPending
	}
	limit := httputil.ParseQueryInt(r, "limit", 50)
	offset := httputil.ParseQueryInt(r, "offset", 0)

	orders, err := h.store.ListOrdersByStatus(r.Context(), status, limit, offset)
	if errors.Is(err, ErrInvalidStatus) {
		httputil.WriteBadRequest(w, err.Error())
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if orders == nil {
		orders = []*Order{}
	}
	httputil.WriteSuccess(w, orders)
}

type updateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

// AdminUpdateOrderStatus handles PUT /admin/orders/{id}/status
func (h *Handlers) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	prof := middleware.ProfileFrom(r.Context())
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	var req updateOrderStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	order, err := h.store.UpdateOrderStatus(r.Context(), id, req.Status)
	switch {
	case errors.Is(err, ErrInvalidStatus):
		httputil.WriteBadRequest(w, err.Error())
		return
	case errors.Is(err, ErrInvalidTransition):
		httputil.WriteConflict(w, err.Error())
		return
	case errors.Is(err, ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
		return
	case err != nil:
		httputil.WriteInternalError(w, err)
		return
	}

	// Points are earned when the order completes, one per whole currency
	// unit. Completed is terminal, so the credit fires at most once.
	if order.Status == OrderStatusCompleted {
		if _, err := h.store.AddLoyaltyPoints(r.Context(), order.SubjectID, order.TotalCents/100); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("failed to credit loyalty points")
		}
	}

	h.auditEvent(r, audit.EventTypeOrderStatusChange, prof.ID, fmt.Sprintf("%d", id),
		fmt.Sprintf("order moved to %s", order.Status))
	httputil.WriteSuccess(w, order)
}

func (h *Handlers) auditEvent(r *http.Request, eventType audit.EventType, actorID, targetID, message string) {
	if h.audit == nil {
		return
	}
	err := h.audit.Log(r.Context(), &audit.Event{
		EventType: eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		RequestID: contextkeys.GetRequestID(r.Context()),
		Message:   message,
	})
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to write audit event")
	}
}
