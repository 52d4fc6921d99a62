package shipping

import (
	"github.com/erp/syncengine/internal/domain/reconciliation"
)

type parcelItemDTO struct {
	Description string `json:"description"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int64  `json:"quantity"`
	Weight      string `json:"weight"`
	Value       string `json:"value"`
}

// parcelDTO is the carrier's parcel shape; weights are in kilograms as strings
type parcelDTO struct {
	ID                int64           `json:"id,omitempty"`
	Name              string          `json:"name"`
	CompanyName       string          `json:"company_name,omitempty"`
	Email             string          `json:"email,omitempty"`
	Telephone         string          `json:"telephone,omitempty"`
	Address           string          `json:"address"`
	Address2          string          `json:"address_2,omitempty"`
	City              string          `json:"city"`
	PostalCode        string          `json:"postal_code"`
	CountryState      string          `json:"country_state,omitempty"`
	Country           string          `json:"country"`
	OrderNumber       string          `json:"order_number,omitempty"`
	ExternalReference string          `json:"external_reference,omitempty"`
	Weight            string          `json:"weight"`
	Shipment          *shipmentDTO    `json:"shipment,omitempty"`
	ParcelItems       []parcelItemDTO `json:"parcel_items,omitempty"`
	RequestLabel      bool            `json:"request_label"`
}

type shipmentDTO struct {
	ID int `json:"id"`
}

type parcelEnvelope struct {
	Parcel parcelDTO `json:"parcel"`
}

func newParcelDTO(p reconciliation.Parcel) parcelDTO {
	dto := parcelDTO{
		ID:                p.ID,
		Name:              p.Name,
		CompanyName:       p.CompanyName,
		Email:             p.Email,
		Telephone:         p.Telephone,
		Address:           p.Address.Line1,
		Address2:          p.Address.Line2,
		City:              p.Address.City,
		PostalCode:        p.Address.Postcode,
		CountryState:      p.Address.State,
		Country:           p.Address.Country,
		OrderNumber:       p.OrderNumber,
		ExternalReference: p.ExternalReference,
		Weight:            p.Weight.StringFixed(3),
	}
	if p.ShippingMethodID != 0 {
		dto.Shipment = &shipmentDTO{ID: p.ShippingMethodID}
	}
	for _, item := range p.Items {
		dto.ParcelItems = append(dto.ParcelItems, parcelItemDTO{
			Description: item.Description,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			Weight:      item.Weight.StringFixed(3),
			Value:       item.Value.StringFixed(2),
		})
	}
	return dto
}

type shippingMethodDTO struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Carrier string `json:"carrier"`
}

type shippingMethodsResponse struct {
	ShippingMethods []shippingMethodDTO `json:"shipping_methods"`
}
