package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tixgate/internal/models"
)

func TestValidateCreateOrder(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateOrderRequest
		wantErr bool
	}{
		{
			name: "none with amount",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseNone,
				Amount:      3,
				TotalPrice:  3000,
			},
		},
		{
			name: "none without amount",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseNone,
			},
			wantErr: true,
		},
		{
			name: "none with booking ids",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseNone,
				Amount:      1,
				BookingIDs:  []string{"b1"},
			},
			wantErr: true,
		},
		{
			name: "seat with bookings",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseSeat,
				BookingIDs:  []string{"b1", "b2"},
			},
		},
		{
			name: "seat without bookings",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseSeat,
			},
			wantErr: true,
		},
		{
			name: "seat with amount",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseSeat,
				BookingIDs:  []string{"b1"},
				Amount:      2,
			},
			wantErr: true,
		},
		{
			name: "zone with bookings",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseZone,
				BookingIDs:  []string{"b1"},
			},
		},
		{
			name: "zone without bookings",
			req: models.CreateOrderRequest{
				BookingType: models.TypeBaseZone,
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			req: models.CreateOrderRequest{
				BookingType: "table",
				BookingIDs:  []string{"b1"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCreateOrder(&tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
