package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind は呼び出し側が文字列比較せずに分岐するための種別。
type ErrorKind string

const (
	KindNotAuthenticated  ErrorKind = "NOT_AUTHENTICATED"
	KindNotAuthorized     ErrorKind = "NOT_AUTHORIZED"
	KindInvalidQuantity   ErrorKind = "INVALID_QUANTITY"
	KindInvalidAddress    ErrorKind = "INVALID_ADDRESS"
	KindInvalidStatus     ErrorKind = "INVALID_STATUS"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindEmptyCart         ErrorKind = "EMPTY_CART"
	KindOrderNotFound     ErrorKind = "ORDER_NOT_FOUND"
	KindProductNotFound   ErrorKind = "PRODUCT_NOT_FOUND"
	KindItemNotInCart     ErrorKind = "ITEM_NOT_IN_CART"
	KindOutOfStock        ErrorKind = "OUT_OF_STOCK"
	KindConflict          ErrorKind = "CONFLICT"
	KindStoreUnavailable  ErrorKind = "STORE_UNAVAILABLE"
)

// ErrorClass は画面側の出し分け単位（ログイン誘導 / フォームエラー / リトライ等）。
type ErrorClass string

const (
	ClassAuthenticationRequired ErrorClass = "authentication_required"
	ClassForbidden              ErrorClass = "forbidden"
	ClassBadInput               ErrorClass = "bad_input"
	ClassNotFound               ErrorClass = "not_found"
	ClassUnavailable            ErrorClass = "unavailable"
)

func (k ErrorKind) Class() ErrorClass {
	switch k {
	case KindNotAuthenticated:
		return ClassAuthenticationRequired
	case KindNotAuthorized:
		return ClassForbidden
	case KindOrderNotFound, KindProductNotFound, KindItemNotInCart:
		return ClassNotFound
	case KindConflict, KindStoreUnavailable:
		return ClassUnavailable
	default:
		return ClassBadInput
	}
}

// HTTPStatus はRESTで返すステータス。
func (k ErrorKind) HTTPStatus() int {
	switch k.Class() {
	case ClassAuthenticationRequired:
		return http.StatusUnauthorized
	case ClassForbidden:
		return http.StatusForbidden
	case ClassNotFound:
		return http.StatusNotFound
	case ClassUnavailable:
		if k == KindConflict {
			return http.StatusConflict
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Class() ErrorClass {
	return e.Kind.Class()
}

// Extensions は GraphQL の errors[].extensions に載せる値。
func (e *AppError) Extensions() map[string]interface{} {
	return map[string]interface{}{
		"code":  string(e.Kind),
		"class": string(e.Kind.Class()),
	}
}

func NewAppError(kind ErrorKind, message string) error {
	return &AppError{Kind: kind, Message: message}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

// IsKind は err が kind の AppError かどうか。
func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAppError(err)
	return ok && ae.Kind == kind
}

// storeUnavailable はストア由来の失敗を包む。元のエラーはログ用に保持する。
func storeUnavailable(err error) error {
	return &AppError{Kind: KindStoreUnavailable, Message: "store unavailable", Err: err}
}

var (
	errNotAuthenticated = NewAppError(KindNotAuthenticated, "authentication required")
	errNotAuthorized    = NewAppError(KindNotAuthorized, "forbidden")
	errInvalidQuantity  = NewAppError(KindInvalidQuantity, "invalid quantity")
	errQuantityLimit    = NewAppError(KindInvalidQuantity, "quantity exceeds per-item limit")
	errEmptyCart        = NewAppError(KindEmptyCart, "cart empty")
	errOrderNotFound    = NewAppError(KindOrderNotFound, "order not found")
	errProductNotFound  = NewAppError(KindProductNotFound, "product not found")
	errOutOfStock       = NewAppError(KindOutOfStock, "out of stock")
	errItemNotInCart    = NewAppError(KindItemNotInCart, "item not in cart")
	errCartConflict     = NewAppError(KindConflict, "cart was modified concurrently, try again")

	errOrderStatusConflict = NewAppError(KindConflict, "order status was changed concurrently, reload and try again")
)
