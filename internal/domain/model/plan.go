package model

import "time"

// Plan describes a sellable recharge product. Plan CRUD lives outside this
// core; the engine only reads value, validity and the product label.
type Plan struct {
	ID           string
	Name         string
	AppName      string // product label, denormalized onto imported codes
	Value        int64  // minor currency units
	ValidityDays int
	CreatedAt    time.Time
}
