// Package shipping implements the shipping gateway over the carrier platform's
// parcel API.
package shipping

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/erp/syncengine/internal/domain/reconciliation"
	"github.com/erp/syncengine/internal/infrastructure/httpclient"
)

// ErrMissingParcelID indicates an update of a parcel that was never created
var ErrMissingParcelID = errors.New("shipping: parcel id is required")

// Adapter implements reconciliation.ShippingGateway
type Adapter struct {
	config *Config
	client *resty.Client
	logger *zap.Logger
}

// NewAdapter creates a new shipping adapter with the given configuration
func NewAdapter(config *Config, logger *zap.Logger) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := httpclient.New(*config.clientConfig(), logger)
	if err != nil {
		return nil, err
	}
	client.SetBasicAuth(config.PublicKey, config.SecretKey)

	return &Adapter{
		config: config,
		client: client,
		logger: logger.Named("shipping"),
	}, nil
}

func (a *Adapter) check(resp *resty.Response, err error) error {
	return httpclient.CheckResponse(reconciliation.ServiceShipping, resp, err)
}

// CreateParcel announces a parcel and returns its id
func (a *Adapter) CreateParcel(ctx context.Context, parcel reconciliation.Parcel) (int64, error) {
	dto := newParcelDTO(parcel)
	dto.ID = 0

	var created parcelEnvelope
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(parcelEnvelope{Parcel: dto}).
		SetResult(&created).
		Post("/parcels")
	if err := a.check(resp, err); err != nil {
		return 0, fmt.Errorf("failed to create parcel for order %s: %w", parcel.OrderNumber, err)
	}
	if created.Parcel.ID == 0 {
		return 0, reconciliation.NewRemoteAPIError(reconciliation.ServiceShipping, resp.StatusCode(),
			"parcel response without id")
	}

	a.logger.Debug("Parcel created",
		zap.Int64("parcel_id", created.Parcel.ID),
		zap.String("order_number", parcel.OrderNumber),
	)
	return created.Parcel.ID, nil
}

// UpdateParcel updates the parcel identified by parcel.ID
func (a *Adapter) UpdateParcel(ctx context.Context, parcel reconciliation.Parcel) error {
	if parcel.ID == 0 {
		return ErrMissingParcelID
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(parcelEnvelope{Parcel: newParcelDTO(parcel)}).
		Put("/parcels")
	if err := a.check(resp, err); err != nil {
		return fmt.Errorf("failed to update parcel %d: %w", parcel.ID, err)
	}
	return nil
}

// CancelParcel cancels an announced parcel. Parcels already gone at the
// carrier count as cancelled.
func (a *Adapter) CancelParcel(ctx context.Context, id int64) error {
	resp, err := a.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Post("/parcels/{id}/cancel")
	if err := a.check(resp, err); err != nil {
		var remoteErr *reconciliation.RemoteAPIError
		if errors.As(err, &remoteErr) && remoteErr.IsNotFound() {
			a.logger.Info("Parcel already removed at carrier", zap.Int64("parcel_id", id))
			return nil
		}
		return fmt.Errorf("failed to cancel parcel %d: %w", id, err)
	}
	return nil
}

// ListShippingMethods returns the carrier services enabled for the account
func (a *Adapter) ListShippingMethods(ctx context.Context) ([]reconciliation.ShippingMethod, error) {
	var body shippingMethodsResponse
	resp, err := a.client.R().SetContext(ctx).SetResult(&body).Get("/shipping-methods")
	if err := a.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list shipping methods: %w", err)
	}

	methods := make([]reconciliation.ShippingMethod, len(body.ShippingMethods))
	for i, m := range body.ShippingMethods {
		methods[i] = reconciliation.ShippingMethod(m)
	}
	return methods, nil
}

// Ensure Adapter implements reconciliation.ShippingGateway
var _ reconciliation.ShippingGateway = (*Adapter)(nil)
