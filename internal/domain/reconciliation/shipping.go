package reconciliation

import (
	"context"

	"github.com/shopspring/decimal"
)

// ParcelItem is one item declared on a parcel
type ParcelItem struct {
	Description string
	SKU         string
	Quantity    int64
	Weight      decimal.Decimal
	Value       decimal.Decimal
}

// Parcel is a shipment announced to the carrier. ID is zero until created.
type Parcel struct {
	ID                int64
	Name              string
	CompanyName       string
	Email             string
	Telephone         string
	Address           Address
	OrderNumber       string
	ExternalReference string
	Weight            decimal.Decimal
	ShippingMethodID  int
	Items             []ParcelItem
}

// ShippingMethod is a carrier service the account may use
type ShippingMethod struct {
	ID      int
	Name    string
	Carrier string
}

// ShippingGateway is the typed client of the shipping carrier platform
type ShippingGateway interface {
	// CreateParcel announces a parcel and returns its id
	CreateParcel(ctx context.Context, parcel Parcel) (int64, error)
	// UpdateParcel updates the parcel identified by parcel.ID
	UpdateParcel(ctx context.Context, parcel Parcel) error
	CancelParcel(ctx context.Context, id int64) error
	ListShippingMethods(ctx context.Context) ([]ShippingMethod, error)
}
