// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/store"
)

// AdminStore creates and looks up admins
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *store.Admin) error
	GetAdminByUsername(ctx context.Context, username string) (*store.Admin, error)
}

// MinPasswordLength is the minimum length of admin passwords
const MinPasswordLength = 8

// CreateAdmin creates a new admin with a hashed password
func CreateAdmin(ctx context.Context, s AdminStore, username, password string) (*store.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username must not be empty")
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("password must have at least %d characters", MinPasswordLength)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := &store.Admin{Username: username, PasswordHash: hash}
	if err := s.CreateAdmin(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// EnsureAdmin creates the admin if no admin with this username exists yet
func EnsureAdmin(ctx context.Context, s AdminStore, username, password string) error {
	_, err := s.GetAdminByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if _, err = CreateAdmin(ctx, s, username, password); err != nil {
		if errors.Is(err, store.ErrConflict) { // somebody else was faster
			return nil
		}
		return err
	}
	logger.FromContext(ctx).Infoln("created admin", username)
	return nil
}

// ErrBadCredentials is returned by Authenticate for unknown usernames and wrong passwords
var ErrBadCredentials = errors.New("bad credentials")

// Authenticate returns the admin for username if password matches
func Authenticate(ctx context.Context, s AdminStore, username, password string) (*store.Admin, error) {
	admin, err := s.GetAdminByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		CheckPassword(dummyHash, password) // constant time for unknown usernames
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !CheckPassword(admin.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return admin, nil
}

var dummyHash, _ = HashPassword("carlot-dummy-password")
