package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SystemAccountHandle owns every generated bag.
const SystemAccountHandle = "@discobot"

// GetAccountByHandle retrieves an account. Returns nil when not found.
func (db *DB) GetAccountByHandle(ctx context.Context, handle string) (*Account, error) {
	var account Account
	err := db.pool.QueryRow(ctx,
		`SELECT id, handle, display_name FROM accounts WHERE handle = $1`,
		handle,
	).Scan(&account.ID, &account.Handle, &account.DisplayName)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// EnsureSystemAccount returns the system account, creating it on first use.
func (db *DB) EnsureSystemAccount(ctx context.Context) (*Account, error) {
	account, err := db.GetAccountByHandle(ctx, SystemAccountHandle)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account = &Account{Handle: SystemAccountHandle, DisplayName: "Gear Discovery Bot"}
	err = db.pool.QueryRow(ctx,
		`INSERT INTO accounts (handle, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (handle) DO UPDATE SET display_name = accounts.display_name
		 RETURNING id`,
		account.Handle, account.DisplayName,
	).Scan(&account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create system account: %w", err)
	}
	return account, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
