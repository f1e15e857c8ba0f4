package app

import (
	"errors"
	"fmt"

	"github.com/tartampluch/go-birthday-tracker/internal/config"
	"github.com/zalando/go-keyring"
)

// Keyring stores import passwords in the OS credential store.
type Keyring struct{}

func (Keyring) Password(user string) (string, error) {
	return keyring.Get(config.KeyringService, user)
}

// SetPassword saves the password of user, replacing any previous one.
func (Keyring) SetPassword(user, password string) error {
	if user == "" {
		return errors.New(config.ErrUserRequired)
	}
	if err := keyring.Set(config.KeyringService, user, password); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPasswordStore, err)
	}
	return nil
}
