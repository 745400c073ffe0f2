package domain

import "time"

type OrderPlacedEvent struct {
	Order     OrderSnapshot `json:"order"`
	Timestamp time.Time     `json:"timestamp"`
}
