package model

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var addressValidator = validator.New(validator.WithRequiredStructEnabled())

// 配送先住所。5項目すべて必須。
type ShippingAddress struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=255"`
	State   string `json:"state" validate:"required,max=255"`
	ZipCode string `json:"zip_code" validate:"required,max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

// Normalize は前後の空白を落とす。
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Street:  strings.TrimSpace(a.Street),
		City:    strings.TrimSpace(a.City),
		State:   strings.TrimSpace(a.State),
		ZipCode: strings.TrimSpace(a.ZipCode),
		Country: strings.TrimSpace(a.Country),
	}
}

// Validate は Normalize 後の値に対して呼ぶ。
func (a ShippingAddress) Validate() error {
	return addressValidator.Struct(a)
}
