package controllers

import (
	"net/http"

	"github.com/angelmondragon/mystore-sync/api/responses"
	"github.com/angelmondragon/mystore-sync/api/validators"
	"github.com/angelmondragon/mystore-sync/internal/checkout"
	"github.com/angelmondragon/mystore-sync/internal/payment"
	"github.com/angelmondragon/mystore-sync/internal/remote"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

type paymentStateResponse struct {
	State  payment.State  `json:"state"`
	Method payment.Method `json:"method,omitempty"`
	Intent *remote.Intent `json:"intent,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func newPaymentStateResponse(o *payment.Orchestrator) paymentStateResponse {
	resp := paymentStateResponse{
		State:  o.State(),
		Method: o.Method(),
		Intent: o.Intent(),
	}
	if err := o.LastError(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// PaymentState returns the orchestrator's current position.
func PaymentState(o *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newPaymentStateResponse(o))
	}
}

type selectMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=cod card"`
}

// PaymentSelectMethod starts a payment attempt with the chosen method.
func PaymentSelectMethod(o *payment.Orchestrator, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload selectMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount := svc.Totals(r.Context()).GrandTotal
		if err := o.SelectMethod(r.Context(), payment.Method(payload.Method), amount); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentStateResponse(o))
	}
}

type attachCardRequest struct {
	Token string `json:"token" validate:"required"`
	Last4 string `json:"last4"`
	Brand string `json:"brand"`
}

// PaymentAttachCard binds a tokenized card to the open intent.
func PaymentAttachCard(o *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload attachCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		card := remote.CardDetails{Token: payload.Token, Last4: payload.Last4, Brand: payload.Brand}
		if err := o.AttachCard(r.Context(), card); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPaymentStateResponse(o))
	}
}

// PaymentConfirm captures the charge and places the order.
func PaymentConfirm(o *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := o.ConfirmCardPayment(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// PaymentSubmitCOD places the order with cash-on-delivery metadata.
func PaymentSubmitCOD(o *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := o.SubmitCOD(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// PaymentReset returns the orchestrator to idle.
func PaymentReset(o *payment.Orchestrator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o.Reset(r.Context())
		responses.WriteSuccess(w, newPaymentStateResponse(o))
	}
}
