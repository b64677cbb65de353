package journal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"upkeep/domain/state"

	"github.com/fundwit/go-commons/types"
)

const (
	CategoryCreated           = Category("CREATED")
	CategoryPropertyUpdated   = Category("PROPERTY_UPDATED")
	CategoryAssignmentChanged = Category("ASSIGNMENT_CHANGED")
	CategoryCommentAdded      = Category("COMMENT_ADDED")
	CategoryPartAdded         = Category("PART_ADDED")
	CategoryPartRemoved       = Category("PART_REMOVED")
	CategoryStarted           = Category("STARTED")
	CategoryStopped           = Category("STOPPED")
	CategoryCancelled         = Category("CANCELLED")
	CategoryReopened          = Category("REOPENED")
)

type Category string

type Entry struct {
	WorkItemID   types.ID `json:"workItemId"`
	WorkItemName string   `json:"workItemName"`

	Category Category `json:"category"`

	UpdatedProperties UpdatedProperties `json:"updatedProperties" sql:"type:TEXT"`

	// FromStatus/ToStatus are set on every lifecycle transition record.
	FromStatus state.Status `json:"fromStatus"`
	ToStatus   state.Status `json:"toStatus"`

	Message string `json:"message" sql:"type:TEXT"`

	CreatorID   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`
}

// Record rows are insert-only. The auto-increment ID breaks ordering ties
// between records sharing one timestamp.
type Record struct {
	ID uint64 `json:"id" gorm:"primary_key;auto_increment"`

	Entry

	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6)"`
}

func (r *Record) TableName() string {
	return "journal_records"
}

type UpdatedProperty struct {
	PropertyName string `json:"propertyName"`

	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

type UpdatedProperties []UpdatedProperty

func (t UpdatedProperties) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *UpdatedProperties) Scan(v interface{}) error {
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
