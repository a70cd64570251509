// Package ratestore implements the Rate Fetcher (C5): a negotiated-rate
// lookup against a local Postgres store rather than a peer HTTP service
// (spec §6: "repository/database query returning { amount, kind, found }").
package ratestore

import "github.com/meridianhealth/estimator/internal/money"

// RateRow is the GORM model backing one negotiated rate row.
type RateRow struct {
	ID             uint   `gorm:"primaryKey"`
	ProviderID     string `gorm:"index:idx_rate_lookup,priority:1"`
	NetworkID      string `gorm:"index:idx_rate_lookup,priority:2"`
	ProcedureCode  string `gorm:"index:idx_rate_lookup,priority:3"`
	PlaceOfService string `gorm:"index:idx_rate_lookup,priority:4"`
	AmountCents    int64
	Kind           string
}

// TableName pins the table name so migrations and AutoMigrate agree.
func (RateRow) TableName() string { return "negotiated_rates" }

func (r RateRow) amount() money.Cents { return money.Cents(r.AmountCents) }
