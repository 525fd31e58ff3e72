package transport

import (
	"errors"
	"net/http"
	"strconv"

	"marketplace/internal/domain"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"
	"marketplace/internal/variant"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorMappings is checked in order with errors.Is
var errorMappings = []errorMapping{
	{service.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY"},
	{service.ErrInvalidPhone, http.StatusBadRequest, "INVALID_PHONE"},
	{service.ErrVariantRequired, http.StatusBadRequest, "VARIANT_REQUIRED"},
	{service.ErrUnknownVariant, http.StatusBadRequest, "UNKNOWN_VARIANT"},
	{service.ErrProductNotInShop, http.StatusBadRequest, "PRODUCT_NOT_IN_SHOP"},
	{service.ErrInvalidStatus, http.StatusBadRequest, "INVALID_STATUS"},
	{service.ErrInvalidVariants, http.StatusBadRequest, "INVALID_VARIANTS"},
	{service.ErrNameRequired, http.StatusBadRequest, "NAME_REQUIRED"},
	{service.ErrInvalidPrice, http.StatusBadRequest, "INVALID_PRICE"},
	{service.ErrInvalidStock, http.StatusBadRequest, "INVALID_STOCK"},
	{service.ErrInvalidSlug, http.StatusBadRequest, "INVALID_SLUG"},
	{service.ErrInvalidComponent, http.StatusBadRequest, "INVALID_COMPONENT"},
	{service.ErrInvalidContentType, http.StatusBadRequest, "INVALID_CONTENT_TYPE"},
	{service.ErrInvalidRole, http.StatusBadRequest, "INVALID_ROLE"},
	{repository.ErrInvalidComponentOrder, http.StatusBadRequest, "INVALID_COMPONENT_ORDER"},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED"},

	{service.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{service.ErrAccountDisabled, http.StatusForbidden, "ACCOUNT_DISABLED"},

	{repository.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{repository.ErrShopNotFound, http.StatusNotFound, "SHOP_NOT_FOUND"},
	{repository.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{repository.ErrComponentNotFound, http.StatusNotFound, "COMPONENT_NOT_FOUND"},

	{repository.ErrUserAlreadyExists, http.StatusConflict, "EMAIL_TAKEN"},
	{repository.ErrShopAlreadyExists, http.StatusConflict, "SHOP_EXISTS"},
	{repository.ErrShopSlugTaken, http.StatusConflict, "SLUG_TAKEN"},
	{repository.ErrProductInUse, http.StatusConflict, "PRODUCT_IN_USE"},
	{repository.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{service.ErrCannotCancel, http.StatusConflict, "CANNOT_CANCEL"},

	{service.ErrShopUnavailable, http.StatusUnprocessableEntity, "SHOP_UNAVAILABLE"},
	{service.ErrProductUnavailable, http.StatusUnprocessableEntity, "PRODUCT_UNAVAILABLE"},
	{service.ErrPaymentUnavailable, http.StatusUnprocessableEntity, "PAYMENT_UNAVAILABLE"},
}

// respondError writes the error envelope for a service or repository error.
// Unknown errors are logged and reported as 500 without their text.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}

		var details map[string]interface{}
		var short *repository.InsufficientStockError
		if errors.As(err, &short) {
			details = map[string]interface{}{
				"product_id":   short.ProductID.String(),
				"product_name": short.ProductName,
				"requested":    short.Requested,
			}
			if short.VariantKey != "" {
				details["variant"] = short.VariantKey
				details["variant_label"] = variant.FormatKey(short.VariantKey)
			}
		}

		if m.status >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Error(err))
		} else {
			logger.Debug("Request rejected", zap.String("code", m.code), zap.Error(err))
		}
		middleware.RespondWithErrorDetails(w, m.status, m.code, err.Error(), details)
		return
	}

	logger.Error("Unhandled request error", zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

// decodeRequest decodes and validates a JSON body, writing the error
// response itself when that fails
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *zap.Logger, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// currentUser returns the authenticated user, answering 401 when missing
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, domain.Role, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return uuid.Nil, "", false
	}
	role, _ := middleware.GetUserRole(r.Context())
	return userID, role, true
}

// urlID parses a UUID path parameter, answering 400 when malformed
func urlID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pageQuery reads page, page_size, sort_by, sort_order and q
func pageQuery(r *http.Request) repository.ProductFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	order := repository.SortOrderDesc
	if q.Get("sort_order") == "asc" {
		order = repository.SortOrderAsc
	}

	return repository.ProductFilter{
		Search:    q.Get("q"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.Get("sort_by"),
		SortOrder: order,
	}
}

// activeRequest toggles users and shops from the admin console
type activeRequest struct {
	Active *bool `json:"active" validate:"required"`
}
