package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

type PlanFrequency string

const (
	FrequencyDaily   = PlanFrequency("DAILY")
	FrequencyWeekly  = PlanFrequency("WEEKLY")
	FrequencyMonthly = PlanFrequency("MONTHLY")
)

func (f PlanFrequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// Checklist is an ordered list of instruction lines, stored as a JSON TEXT column.
type Checklist []string

func (t Checklist) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *Checklist) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), c)
}

// PmPlan is a recurring preventive-maintenance schedule attached to an asset.
// NextDueAt is advanced exclusively by the generation pass.
type PmPlan struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name      string   `json:"name" gorm:"not null"`
	AssetID   types.ID `json:"assetId"`
	AssetName string   `json:"assetName"`

	Frequency PlanFrequency `json:"frequency"`
	Checklist Checklist     `json:"checklist" sql:"type:TEXT"`

	NextDueAt types.Timestamp `json:"nextDueAt" sql:"type:DATETIME(6) NOT NULL"`
	Active    bool            `json:"active"`

	CreateTime  types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	CreatorID   types.ID        `json:"creatorId"`
	CreatorName string          `json:"creatorName"`
}

func (r *PmPlan) TableName() string {
	return "pm_plans"
}

type PmPlanCreation struct {
	Name      string   `json:"name" binding:"required,lte=255"`
	AssetID   types.ID `json:"assetId" binding:"required"`
	AssetName string   `json:"assetName"`

	Frequency PlanFrequency `json:"frequency" binding:"required"`
	Checklist Checklist     `json:"checklist"`

	// NextDueAt is optional; when zero the first due moment is one cadence
	// unit after creation.
	NextDueAt types.Timestamp `json:"nextDueAt"`
}

type PmPlanQuery struct {
	AssetID types.ID `json:"assetId" form:"assetId"`
}
