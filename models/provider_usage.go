package models

// ProviderUsage is the store-backed daily call counter behind provider
// failover. Keeping it in the store (rather than in-process) lets multiple
// instances share one quota.
type ProviderUsage struct {
	Provider string `gorm:"size:20;primaryKey" json:"provider"`
	Day      string `gorm:"size:10;primaryKey" json:"day"` // YYYY-MM-DD, UTC
	Calls    int    `gorm:"not null;default:0" json:"calls"`
}
