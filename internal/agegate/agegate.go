// Package agegate decides whether a token holder may create products.
package agegate

import (
	"errors"
	"time"
)

// MinimumAge is the age a holder must have reached to create a product.
const MinimumAge = 18

var (
	ErrBirthdateMissing = errors.New("provide a birthdate to create a product.")
	ErrBirthdateInvalid = errors.New("birthdate must be an ISO-8601 date.")
	ErrUnderage         = errors.New("must be 18 to create a product.")
)

// Payload is the subset of token claims the gate reads.
type Payload struct {
	Birthdate *string
}

// Validate returns the holder's age, or the reason they may not create a
// product. Only the calendar date of today is used.
func Validate(p Payload, today time.Time) (int, error) {
	if p.Birthdate == nil || *p.Birthdate == "" {
		return 0, ErrBirthdateMissing
	}

	birthdate, err := time.Parse(time.DateOnly, *p.Birthdate)
	if err != nil {
		return 0, ErrBirthdateInvalid
	}

	age := Age(birthdate, today)
	if age < MinimumAge {
		return age, ErrUnderage
	}
	return age, nil
}

// Age counts whole years between birthdate and today, subtracting one when
// today's month/day falls before the birthday.
func Age(birthdate, today time.Time) int {
	age := today.Year() - birthdate.Year()
	if today.Month() < birthdate.Month() ||
		(today.Month() == birthdate.Month() && today.Day() < birthdate.Day()) {
		age--
	}
	return age
}
