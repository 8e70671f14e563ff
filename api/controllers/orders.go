package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/mystore-sync/api/responses"
	"github.com/angelmondragon/mystore-sync/api/validators"
	"github.com/angelmondragon/mystore-sync/internal/orders"
	"github.com/angelmondragon/mystore-sync/pkg/logger"
)

type ordersListResponse struct {
	Orders     []orders.Order `json:"orders"`
	Page       int            `json:"page"`
	TotalPages int            `json:"totalPages"`
	Remote     bool           `json:"remote"`
}

// OrdersList returns one page of orders visible to the caller.
func OrdersList(repo *orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, pg, err := repo.List(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ordersListResponse{
			Orders:     list,
			Page:       pg.Number,
			TotalPages: pg.TotalPages,
			Remote:     repo.RemoteEnabled(),
		})
	}
}

// OrdersRefresh drops the session's cached lists and reloads the
// caller's scope. Clients call it right after login.
func OrdersRefresh(repo *orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"refreshed": true})
	}
}

// OrderGet returns one order from the local mirror.
func OrderGet(repo *orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := repo.Get(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}

// OrderUpdateStatus moves an order to a new lifecycle status.
func OrderUpdateStatus(repo *orders.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID := chi.URLParam(r, "orderID")
		if err := repo.UpdateStatus(r.Context(), orderID, orders.Status(payload.Status)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": orderID, "status": payload.Status})
	}
}
