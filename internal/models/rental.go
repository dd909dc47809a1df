package models

import (
	"fmt"
	"strings"
)

// CheckinType 取车方式
type CheckinType string

const (
	CheckinConnect CheckinType = "connect" // 无钥匙/App 取车
	CheckinMobile  CheckinType = "mobile"  // 线下与车主交接
)

// Channels 全部取车方式，顺序固定
var Channels = []CheckinType{CheckinConnect, CheckinMobile}

// ParseCheckinType 解析取车方式，未知值返回错误
func ParseCheckinType(s string) (CheckinType, error) {
	switch CheckinType(strings.ToLower(strings.TrimSpace(s))) {
	case CheckinConnect:
		return CheckinConnect, nil
	case CheckinMobile:
		return CheckinMobile, nil
	}
	return "", fmt.Errorf("unknown checkin_type %q", s)
}

// Valid 是否为已知取车方式
func (c CheckinType) Valid() bool {
	return c == CheckinConnect || c == CheckinMobile
}

// RentalState 租赁最终状态
type RentalState string

const (
	StateEnded     RentalState = "ended"
	StateCancelled RentalState = "cancelled"
)

// States 全部租赁状态
var States = []RentalState{StateEnded, StateCancelled}

// ParseRentalState 解析租赁状态，数据集里的 "canceled" 拼写视为 cancelled
func ParseRentalState(s string) (RentalState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ended":
		return StateEnded, nil
	case "cancelled", "canceled":
		return StateCancelled, nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// RentalRecord 一次租赁记录（数据表中的一行）
// 三个可空字段用 nil 表示缺失，不用 0 代替
type RentalRecord struct {
	RentalID              int64       `json:"rental_id" db:"rental_id"`
	CarID                 int64       `json:"car_id" db:"car_id"`
	CheckinType           CheckinType `json:"checkin_type" db:"checkin_type"`
	State                 RentalState `json:"state" db:"state"`
	DelayAtCheckout       *int64      `json:"delay_at_checkout_in_minutes" db:"delay_at_checkout_in_minutes"`
	PreviousEndedRentalID *int64      `json:"previous_ended_rental_id" db:"previous_ended_rental_id"`
	TimeDeltaWithPrevious *int64      `json:"time_delta_with_previous_rental_in_minutes" db:"time_delta_with_previous_rental_in_minutes"`
}

// HasPrevious 是否存在上一单
func (r RentalRecord) HasPrevious() bool {
	return r.TimeDeltaWithPrevious != nil
}

// IsLate 还车是否迟到（延误 > 0）
func (r RentalRecord) IsLate() bool {
	return r.DelayAtCheckout != nil && *r.DelayAtCheckout > 0
}

// Int64Ptr 辅助函数
func Int64Ptr(v int64) *int64 {
	return &v
}
