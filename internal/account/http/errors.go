package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// writeError maps an account error onto a status code and APIError body.
// Causes are logged, never sent; server side failures carry the request id
// so they can be found in the logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := slogx.FromContext(r.Context())

	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error("unclassified error", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	apiErr := &accountsdk.APIError{Description: de.Display(), Field: de.Field}
	switch de.Kind {
	case domain.DuplicateField:
		apiErr.StatusCode, apiErr.Code = http.StatusConflict, accountsdk.ErrorCodeDuplicateField
	case domain.NotFound:
		apiErr.StatusCode, apiErr.Code = http.StatusNotFound, accountsdk.ErrorCodeNotFound
	case domain.InvalidCredentials:
		apiErr.StatusCode, apiErr.Code = http.StatusUnauthorized, accountsdk.ErrorCodeInvalidCredentials
	case domain.InvalidOrExpiredOtp:
		apiErr.StatusCode, apiErr.Code = http.StatusBadRequest, accountsdk.ErrorCodeInvalidOrExpiredOTP
	case domain.ValidationError:
		apiErr.StatusCode, apiErr.Code = http.StatusBadRequest, accountsdk.ErrorCodeValidation
	case domain.DispatchError:
		log.Error("mail dispatch failed", "err", err)
		apiErr.StatusCode, apiErr.Code = http.StatusBadGateway, accountsdk.ErrorCodeDispatch
	case domain.HashingError:
		log.Error("password hashing failed", "err", err)
		apiErr.StatusCode, apiErr.Code = http.StatusInternalServerError, accountsdk.ErrorCodeHashing
	case domain.StoreError:
		log.Error("store failure", "err", err)
		apiErr.StatusCode, apiErr.Code = http.StatusInternalServerError, accountsdk.ErrorCodeStore
	default:
		log.Error("unclassified account error", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		if id := slogx.RequestID(r.Context()); id != "" {
			apiErr.Description = fmt.Sprintf("%s (request %s)", apiErr.Description, id)
		}
	}
	apiErr.WriteError(w)
}

func writeBadRequest(w http.ResponseWriter, desc string) {
	accountsdk.NewAPIError(http.StatusBadRequest, accountsdk.ErrorCodeInvalidRequest, desc).WriteError(w)
}
