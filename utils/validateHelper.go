package utils

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "NP"

var validate = validator.New()

// ValidateStruct runs go-playground/validator over a request input struct.
func ValidateStruct(input interface{}) error {
	return validate.Struct(input)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

// check uniqueness of a column value. (excludeId = 0 for create)
func ValidateUnique[T any](ctx context.Context, column string, value interface{}, excludeId int) error {
	cond := column + " = ?"
	args := []interface{}{value}
	if excludeId != 0 {
		cond += " AND id <> ?"
		args = append(args, excludeId)
	}
	count, err := ModelCountWhere[T](ctx, cond, args...)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s already exists", column)
	}
	return nil
}
