package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Регистрация валидации "currencycode": код валюты шлюза состоит из
// букв, цифр и разделителя сетевого суффикса ("usdttrc20", "USDT.TRC20").
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("currencycode", validCurrencyCode)
	}
}

func validCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	for _, r := range code {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
