package handler

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/ttacon/libphonenumber"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the isodate, br_phone and br_document binding tags
// to gin's validator. It must run before any request is bound.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		for tag, fn := range map[string]validator.Func{
			"isodate":     validateISODate,
			"br_phone":    validatePhone,
			"br_document": validateDocument,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = fmt.Errorf("register %s: %w", tag, err)
				return
			}
		}
	})
	return registerErr
}

// jsonFieldName reports validation errors under the JSON field name
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// validateISODate accepts a blank value; pair with required when mandatory
func validateISODate(fl validator.FieldLevel) bool {
	v := strings.TrimSpace(fl.Field().String())
	if v == "" {
		return true
	}
	_, err := lifecycle.ParseDate(fl.FieldName(), v)
	return err == nil
}

func validatePhone(fl validator.FieldLevel) bool {
	return ValidPhone(fl.Field().String())
}

func validateDocument(fl validator.FieldLevel) bool {
	return ValidDocument(fl.Field().String())
}

// ValidPhone reports whether s is a valid Brazilian phone number
func ValidPhone(s string) bool {
	p, err := libphonenumber.Parse(s, "BR")
	if err != nil {
		return false
	}
	return libphonenumber.IsValidNumber(p)
}

// ValidDocument reports whether s is a CPF or CNPJ with valid check digits.
// Punctuation is ignored.
func ValidDocument(s string) bool {
	digits := make([]int, 0, 14)
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == '/' || r == ' ':
		default:
			return false
		}
	}

	switch len(digits) {
	case 11:
		return validCPF(digits)
	case 14:
		return validCNPJ(digits)
	default:
		return false
	}
}

func validCPF(d []int) bool {
	if allEqual(d) {
		return false
	}
	for n := 9; n <= 10; n++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * (n + 1 - i)
		}
		check := sum * 10 % 11
		if check == 10 {
			check = 0
		}
		if check != d[n] {
			return false
		}
	}
	return true
}

var cnpjWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}

func validCNPJ(d []int) bool {
	if allEqual(d) {
		return false
	}
	for n := 12; n <= 13; n++ {
		weights := cnpjWeights[13-n:]
		sum := 0
		for i := 0; i < n; i++ {
			sum += d[i] * weights[i]
		}
		check := 0
		if r := sum % 11; r >= 2 {
			check = 11 - r
		}
		if check != d[n] {
			return false
		}
	}
	return true
}

func allEqual(d []int) bool {
	for _, v := range d[1:] {
		if v != d[0] {
			return false
		}
	}
	return true
}
