package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/shopspring/decimal"
)

// defaultParcelWeight is declared when a pick-ticket carries no gross weight (kg)
var defaultParcelWeight = decimal.NewFromInt(1)

type pickTicketState struct {
	shippingMethodID int
}

// PickTicketHandler announces shippable pick-tickets as parcels to the carrier
type PickTicketHandler struct {
	orders   reconciliation.OrderManagementGateway
	shipping reconciliation.ShippingGateway
	config   *ConfigurationService
	opts     handlerOptions

	state atomic.Pointer[pickTicketState]
}

// NewPickTicketHandler creates a new PickTicketHandler
func NewPickTicketHandler(
	orders reconciliation.OrderManagementGateway,
	shipping reconciliation.ShippingGateway,
	config *ConfigurationService,
	opts ...HandlerOption,
) *PickTicketHandler {
	o := defaultHandlerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PickTicketHandler{
		orders:   orders,
		shipping: shipping,
		config:   config,
		opts:     o,
	}
}

func (h *PickTicketHandler) ObjectType() reconciliation.ObjectType {
	return reconciliation.ObjectTypePickTicket
}

func (h *PickTicketHandler) SourceService() reconciliation.Service {
	return reconciliation.ServiceOrderManagement
}

func (h *PickTicketHandler) TargetService() reconciliation.Service {
	return reconciliation.ServiceShipping
}

// CreatesOnUnmappedUpdate is true: a ticket that becomes shippable arrives as
// an update although no parcel was ever created for it
func (h *PickTicketHandler) CreatesOnUnmappedUpdate() bool {
	return true
}

// Prepare checks that the configured shipping method is available to the account
func (h *PickTicketHandler) Prepare(ctx context.Context) error {
	methodID, err := h.config.ShippingMethodID(ctx)
	if err != nil {
		return err
	}
	methods, err := h.shipping.ListShippingMethods(ctx)
	if err != nil {
		return fmt.Errorf("failed to list shipping methods: %w", err)
	}

	found := false
	for _, m := range methods {
		if m.ID == methodID {
			found = true
			break
		}
	}
	if !found {
		return reconciliation.NewConfigurationError(reconciliation.SettingShippingMethodID, reconciliation.ErrSettingInvalid,
			fmt.Sprintf("shipping method %d is not available", methodID))
	}

	if err := selectOrganisation(ctx, h.config, h.orders); err != nil {
		return err
	}

	h.state.Store(&pickTicketState{shippingMethodID: methodID})
	return nil
}

func (h *PickTicketHandler) Fetch(ctx context.Context, cursor string, limit *int) ([]reconciliation.RemoteObject, error) {
	sinceID, err := parseSinceID(h.ObjectType(), cursor)
	if err != nil {
		return nil, err
	}
	if limit != nil && *limit == 0 {
		return nil, nil
	}

	tickets, err := h.orders.ListPickTickets(ctx, sinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pick-tickets: %w", err)
	}
	sort.SliceStable(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	tickets = truncateObjects(tickets, limit)

	objects := make([]reconciliation.RemoteObject, len(tickets))
	for i := range tickets {
		objects[i] = &tickets[i]
	}
	return objects, nil
}

func (h *PickTicketHandler) Get(ctx context.Context, id string) (reconciliation.RemoteObject, error) {
	ticketID, err := parseObjectID("id", id)
	if err != nil {
		return nil, err
	}
	pt, err := h.orders.GetPickTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return pt, nil
}

func (h *PickTicketHandler) Decode(payload []byte) (reconciliation.RemoteObject, error) {
	return h.orders.Decode(reconciliation.ObjectTypePickTicket, payload)
}

func (h *PickTicketHandler) Create(ctx context.Context, obj reconciliation.RemoteObject) (string, error) {
	parcel, err := h.translate(ctx, obj)
	if err != nil {
		return "", err
	}
	id, err := h.shipping.CreateParcel(ctx, parcel)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (h *PickTicketHandler) Update(ctx context.Context, obj reconciliation.RemoteObject, targetID string) error {
	parcel, err := h.translate(ctx, obj)
	if err != nil {
		return err
	}
	parcel.ID, err = parseObjectID("parcel_id", targetID)
	if err != nil {
		return err
	}
	return h.shipping.UpdateParcel(ctx, parcel)
}

func (h *PickTicketHandler) Delete(ctx context.Context, targetID string) error {
	parcelID, err := parseObjectID("parcel_id", targetID)
	if err != nil {
		return err
	}
	return h.shipping.CancelParcel(ctx, parcelID)
}

func (h *PickTicketHandler) ObjectURL(objectID string) string {
	return h.opts.objectURL("pick-tickets", objectID)
}

func (h *PickTicketHandler) NextCursor(obj reconciliation.RemoteObject) string {
	return obj.SourceID()
}

// translate builds the parcel for a shippable ticket. Tickets in any other
// status need no carrier call.
func (h *PickTicketHandler) translate(ctx context.Context, obj reconciliation.RemoteObject) (reconciliation.Parcel, error) {
	pt, ok := obj.(*reconciliation.PickTicket)
	if !ok {
		return reconciliation.Parcel{}, unexpectedObject("pick-ticket", obj)
	}
	if !pt.Shippable() {
		return reconciliation.Parcel{}, fmt.Errorf("%w: pick-ticket status %q", reconciliation.ErrNotApplicable, pt.Status)
	}
	state := h.state.Load()
	if state == nil {
		return reconciliation.Parcel{}, reconciliation.ErrSynchronizerNotPrepared
	}

	email, phone := pt.Email, pt.Phone
	if (email == "" || phone == "") && pt.OrderNumber != "" {
		order, err := h.orders.GetOrder(ctx, pt.OrderNumber)
		if err != nil {
			return reconciliation.Parcel{}, fmt.Errorf("failed to get order %s: %w", pt.OrderNumber, err)
		}
		if email == "" {
			email = order.Email
		}
		if phone == "" {
			phone = order.Phone
		}
	}

	name := pt.ContactName
	if name == "" {
		name = pt.CompanyName
	}
	if name == "" || pt.Address.Line1 == "" || pt.Address.Country == "" {
		return reconciliation.Parcel{}, reconciliation.NewTranslationError("address", reconciliation.ErrMissingField,
			"recipient name, street and country are required")
	}

	weight := pt.GrossWeight
	if !weight.IsPositive() {
		weight = defaultParcelWeight
	}

	items := make([]reconciliation.ParcelItem, 0, len(pt.LineItems))
	for _, li := range pt.LineItems {
		items = append(items, reconciliation.ParcelItem{
			Description: li.ProductName,
			SKU:         li.SKU,
			Quantity:    li.TotalQuantity(),
			Value:       reconciliation.RoundCents(li.UnitPrice),
		})
	}

	return reconciliation.Parcel{
		Name:              name,
		CompanyName:       pt.CompanyName,
		Email:             email,
		Telephone:         phone,
		Address:           pt.Address,
		OrderNumber:       pt.OrderNumber,
		ExternalReference: pt.SourceID(),
		Weight:            weight,
		ShippingMethodID:  state.shippingMethodID,
		Items:             items,
	}, nil
}

var _ Handler = (*PickTicketHandler)(nil)
