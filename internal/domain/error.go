package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Inventory / sale errors
	ErrBatchTooLarge      = errors.New("import batch exceeds the configured cap")
	ErrEmptyBatch         = errors.New("import batch contains no codes")
	ErrPlanNotFound       = errors.New("plan not found")
	ErrCodeNotFound       = errors.New("recharge code not found")
	ErrCodeNotAvailable   = errors.New("recharge code is not available")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseNotPending = errors.New("purchase is not pending code delivery")
	ErrPlanMismatch       = errors.New("code belongs to a different plan")
	ErrPaymentRejected    = errors.New("payment was rejected by the gateway")

	// Scheduler errors
	ErrSweepInProgress = errors.New("reminder sweep already in progress")
)
