// Package validation содержит проверку ИНН по контрольным цифрам.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Result описывает результат проверки ИНН.
type Result string

const (
	ResultValid   Result = "VALID"
	ResultInvalid Result = "INVALID"
	// ResultUnknown возвращается, когда значение не передано вовсе.
	ResultUnknown Result = "UNKNOWN"
)

// PayerType описывает тип налогоплательщика. Пустое значение означает, что тип не задан.
type PayerType string

const (
	PayerTypeUnspecified  PayerType = ""
	PayerTypeOrganization PayerType = "organization"
	PayerTypeIndividual   PayerType = "individual_entrepreneur"
)

// ErrUnknownPayerType возвращается при разборе неизвестного типа налогоплательщика.
var ErrUnknownPayerType = errors.New("unknown payer type")

const (
	organizationLength = 10
	individualLength   = 12
)

var (
	organizationWeights = [...]int{2, 4, 10, 3, 5, 9, 4, 6, 8}
	individualWeights1  = [...]int{7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
	individualWeights2  = [...]int{3, 7, 2, 4, 10, 3, 5, 9, 4, 6, 8}
)

// ParsePayerType разбирает строковое представление типа налогоплательщика.
func ParsePayerType(s string) (PayerType, error) {
	switch t := PayerType(s); t {
	case PayerTypeUnspecified, PayerTypeOrganization, PayerTypeIndividual:
		return t, nil
	default:
		return PayerTypeUnspecified, fmt.Errorf("%w: %q", ErrUnknownPayerType, s)
	}
}

// PayerTypeOf определяет тип налогоплательщика по длине номера.
func PayerTypeOf(number string) PayerType {
	switch len(number) {
	case organizationLength:
		return PayerTypeOrganization
	case individualLength:
		return PayerTypeIndividual
	default:
		return PayerTypeUnspecified
	}
}

// Canonical приводит значение к десятичной строке. Второе значение равно false, если значение не передано.
// Для неподдерживаемых типов возвращается пустая строка.
func Canonical(candidate any) (string, bool) {
	// Nil-указатель любого типа означает отсутствие значения.
	if rv := reflect.ValueOf(candidate); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		if _, ok := candidate.(fmt.Stringer); !ok {
			return Canonical(rv.Elem().Interface())
		}
	}

	switch v := candidate.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case json.Number:
		return numberString(v), true
	case int:
		return strconv.FormatInt(int64(v), 10), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", true
	}
}

// numberString приводит json.Number к той же форме, что и числа Go:
// запись с дробной частью или экспонентой принимается, если значение целое.
func numberString(n json.Number) string {
	s := string(n)
	if isDigits(s) {
		return s
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Validate проверяет ИНН. Если expected задан, длина номера должна ему соответствовать:
// 10 цифр для организаций, 12 для индивидуальных предпринимателей.
func Validate(candidate any, expected PayerType) Result {
	number, ok := Canonical(candidate)
	if !ok {
		return ResultUnknown
	}
	return ValidateString(number, expected)
}

// ValidateString проверяет ИНН, уже представленный строкой.
func ValidateString(number string, expected PayerType) Result {
	if !isDigits(number) {
		return ResultInvalid
	}

	// Нулевой номер проходит контрольную сумму, но не выдаётся.
	if strings.Trim(number, "0") == "" {
		return ResultInvalid
	}

	// Код региона 00 не существует.
	if len(number) >= 2 && number[0] == '0' && number[1] == '0' {
		return ResultInvalid
	}

	switch len(number) {
	case organizationLength:
		if expected != PayerTypeUnspecified && expected != PayerTypeOrganization {
			return ResultInvalid
		}
		if controlDigit(number, organizationWeights[:]) != digit(number, 9) {
			return ResultInvalid
		}
		return ResultValid
	case individualLength:
		if expected != PayerTypeUnspecified && expected != PayerTypeIndividual {
			return ResultInvalid
		}
		if controlDigit(number, individualWeights1[:]) != digit(number, 10) {
			return ResultInvalid
		}
		if controlDigit(number, individualWeights2[:]) != digit(number, 11) {
			return ResultInvalid
		}
		return ResultValid
	default:
		return ResultInvalid
	}
}

// controlDigit считает контрольную цифру по первым len(weights) цифрам номера.
func controlDigit(number string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += w * digit(number, i)
	}
	return sum % 11 % 10
}

func digit(number string, i int) int {
	return int(number[i] - '0')
}
