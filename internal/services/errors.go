package services

import "errors"

// Redemption failure taxonomy. Handlers map these onto HTTP statuses;
// expired and consumed are deliberately indistinguishable to clients.
var (
	ErrTransferNotFound = errors.New("transfer not found")
	ErrTransferExpired  = errors.New("transfer expired")
	ErrTransferConsumed = errors.New("transfer already consumed")

	// ErrStorageInconsistency means metadata says the transfer is active
	// but the blob is gone, typically a crash between consume and an
	// earlier blob delete. Operator-facing; never detailed to clients.
	ErrStorageInconsistency = errors.New("storage inconsistency")
)
