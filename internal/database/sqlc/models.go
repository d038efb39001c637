package sqldb

import "time"

type Log struct {
	Partition string
	CreatedAt time.Time
}

type Record struct {
	Seq          int64
	ID           string
	Partition    string
	Date         string
	Sector       string
	TotalKg      float64
	Scope1Kg     float64
	Scope2Kg     float64
	Scope3Kg     float64
	FullDataJson string
	CreatedAt    time.Time
}

type Identity struct {
	Identity  string
	Sector    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
