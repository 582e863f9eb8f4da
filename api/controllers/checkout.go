package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/osanhueza/minimarket-backend/api/responses"
	"github.com/osanhueza/minimarket-backend/api/validators"
	checkoutsvc "github.com/osanhueza/minimarket-backend/internal/checkout"
	"github.com/osanhueza/minimarket-backend/pkg/enums"
	pkgerrors "github.com/osanhueza/minimarket-backend/pkg/errors"
	"github.com/osanhueza/minimarket-backend/pkg/logger"
)

type checkoutRequest struct {
	CartID        uuid.UUID  `json:"cart_id" validate:"required"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
	EmployeeID    *uuid.UUID `json:"employee_id"`
}

// Checkout converts the caller's cart into a sale.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		sale, err := svc.Execute(r.Context(), customerID, body.CartID, checkoutsvc.CheckoutInput{
			EmployeeID:    body.EmployeeID,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}
