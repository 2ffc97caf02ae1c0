// Package student defines the student record managed by zroster.
package student

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when a record is missing required fields.
var ErrInvalid = errors.New("invalid student")

// Student is a persisted student record. The store assigns ID on insert.
type Student struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// IsZero reports whether s is the placeholder used before a record has
// loaded. The store never hands out a record with ID 0.
func (s Student) IsZero() bool {
	return s == Student{}
}

// Normalize returns a copy of s with surrounding whitespace trimmed.
func (s Student) Normalize() Student {
	s.Name = strings.TrimSpace(s.Name)
	s.Address = strings.TrimSpace(s.Address)
	s.Phone = strings.TrimSpace(s.Phone)
	return s
}

// Validate checks that every text field is present.
func (s Student) Validate() error {
	s = s.Normalize()
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalid)
	case s.Address == "":
		return fmt.Errorf("%w: address is required", ErrInvalid)
	case s.Phone == "":
		return fmt.Errorf("%w: phone is required", ErrInvalid)
	}
	return nil
}
