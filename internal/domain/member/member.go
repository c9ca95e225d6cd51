package member

import (
	"time"
)

type Member struct {
	MemberID     int64
	Name         string
	Email        string
	Phone        string
	Address      string
	RegisteredAt time.Time
	UpdatedAt    time.Time
}
