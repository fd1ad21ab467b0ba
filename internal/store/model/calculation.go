package model

import "gorm.io/datatypes"

const (
	StatusOK         = "ok"
	StatusParseError = "parse_error"
	StatusInvalid    = "invalid"
	StatusUndefined  = "undefined"
	StatusNotOffered = "not_offered"
	StatusInternal   = "internal"
)

// CalculationModel maps to 'calculations' table.
type CalculationModel struct {
	ID            int64          `gorm:"column:id;primaryKey;autoIncrement"`
	CalcID        string         `gorm:"column:calc_id;size:36;uniqueIndex"`
	SessionID     string         `gorm:"column:session_id;size:36;index"`
	Balance       float64        `gorm:"column:balance"`
	StopLossPct   float64        `gorm:"column:stop_loss_pct"`
	RiskPct       float64        `gorm:"column:risk_pct"`
	CommissionPct float64        `gorm:"column:commission_pct"`
	PositionSize  float64        `gorm:"column:position_size"`
	EstimatedLoss float64        `gorm:"column:estimated_loss"`
	Status        string         `gorm:"column:status;size:16;index"`
	Error         string         `gorm:"column:error"`
	RequestJSON   datatypes.JSON `gorm:"column:request_json"`
	CreatedAt     int64          `gorm:"column:created_at;autoCreateTime:milli;index"`
}

func (CalculationModel) TableName() string { return "calculations" }
