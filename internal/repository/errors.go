package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// translate maps gorm's not-found error onto ErrNotFound and leaves the rest as-is.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
