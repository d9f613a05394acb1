package validator

import (
	"errors"
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// RequestValidator は echo の c.Validate から呼ばれる。
type RequestValidator struct {
	v *playground.Validate
}

func New() *RequestValidator {
	return &RequestValidator{v: playground.New(playground.WithRequiredStructEnabled())}
}

// Validate は最初に引っかかった項目を "field: rule" の形で返す
func (r *RequestValidator) Validate(i interface{}) error {
	err := r.v.Struct(i)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	rule := fe.Tag()
	if fe.Param() != "" {
		rule += "=" + fe.Param()
	}
	return fmt.Errorf("%s: %s", strings.ToLower(fe.Field()), rule)
}
