package controllers

import (
	"net/http"

	"github.com/angelmondragon/mystore-sync/api/responses"
	"github.com/angelmondragon/mystore-sync/api/validators"
	"github.com/angelmondragon/mystore-sync/internal/checkout"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

// CheckoutTotals returns the live totals breakdown for the cart and
// active coupon.
func CheckoutTotals(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Totals(r.Context()))
	}
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// CouponApply activates a coupon code.
func CouponApply(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload applyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Coupons().Apply(payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"coupon": coupon,
			"totals": svc.Totals(r.Context()),
		})
	}
}

// CouponRemove drops the active coupon.
func CouponRemove(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Coupons().Remove()
		responses.WriteSuccess(w, svc.Totals(r.Context()))
	}
}
