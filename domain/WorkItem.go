package domain

import (
	"time"

	"upkeep/domain/state"

	"github.com/fundwit/go-commons/types"
)

type WorkItemKind string

const (
	KindAdHoc      = WorkItemKind("AD_HOC")
	KindPreventive = WorkItemKind("PREVENTIVE")
	KindExtra      = WorkItemKind("EXTRA")
)

func (k WorkItemKind) IsValid() bool {
	return k == KindAdHoc || k == KindPreventive || k == KindExtra
}

// WorkItem is one unit of maintenance work: a work order (AD_HOC or
// PREVENTIVE) or an extra job (EXTRA). All kinds share the same lifecycle.
type WorkItem struct {
	ID   types.ID     `json:"id" gorm:"primary_key"`
	Kind WorkItemKind `json:"kind"`

	Name        string `json:"name" gorm:"not null"`
	Description string `json:"description" sql:"type:TEXT"`

	Status state.Status `json:"status"`

	AssetID      types.ID `json:"assetId"`
	AssetName    string   `json:"assetName"`
	AssigneeID   types.ID `json:"assigneeId"`
	AssigneeName string   `json:"assigneeName"`

	StartedAt types.Timestamp `json:"startedAt" sql:"type:DATETIME(6)"`
	StoppedAt types.Timestamp `json:"stoppedAt" sql:"type:DATETIME(6)"`

	Defect   string `json:"defect" sql:"type:TEXT"`
	Cause    string `json:"cause" sql:"type:TEXT"`
	Solution string `json:"solution" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`

	CreatorID   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`
	OwnerID     types.ID `json:"ownerId"`
	OwnerName   string   `json:"ownerName"`
}

func (r *WorkItem) TableName() string {
	return "work_items"
}

// DurationMinutes is derived, never stored. The second return value is false
// while either timestamp is missing.
func (r *WorkItem) DurationMinutes() (int64, bool) {
	if r.StartedAt.Time().IsZero() || r.StoppedAt.Time().IsZero() {
		return 0, false
	}
	return int64(r.StoppedAt.Time().Sub(r.StartedAt.Time()).Minutes()), true
}

type WorkItemCreation struct {
	Kind WorkItemKind `json:"kind" binding:"required"`

	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	AssetID   types.ID `json:"assetId"`
	AssetName string   `json:"assetName"`

	AssigneeID   types.ID `json:"assigneeId"`
	AssigneeName string   `json:"assigneeName"`
}

// WorkItemUpdating carries only the fields the caller wants to change.
type WorkItemUpdating struct {
	Name        *string `json:"name" binding:"omitempty,lte=255"`
	Description *string `json:"description"`

	AssetID   *types.ID `json:"assetId"`
	AssetName *string   `json:"assetName"`

	AssigneeID   *types.ID `json:"assigneeId"`
	AssigneeName *string   `json:"assigneeName"`

	StartedAt *types.Timestamp `json:"startedAt"`
	StoppedAt *types.Timestamp `json:"stoppedAt"`

	Defect   *string `json:"defect"`
	Cause    *string `json:"cause"`
	Solution *string `json:"solution"`
}

type WorkItemQuery struct {
	Status  state.Status `json:"status" form:"status"`
	Kind    WorkItemKind `json:"kind" form:"kind"`
	AssetID types.ID     `json:"assetId" form:"assetId"`

	CreatedFrom *time.Time `json:"createdFrom" form:"createdFrom" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo   *time.Time `json:"createdTo" form:"createdTo" time_format:"2006-01-02T15:04:05Z07:00"`
}

type CommentCreation struct {
	Message string `json:"message" binding:"required"`
}

// WorkItemDetail extends a WorkItem with the transitions available from its
// current status and the derived duration.
type WorkItemDetail struct {
	WorkItem

	AvailableTransitions []state.Transition `json:"availableTransitions"`
	DurationMinutes      *int64             `json:"durationMinutes,omitempty"`
}

func DetailOf(item WorkItem) *WorkItemDetail {
	detail := WorkItemDetail{
		WorkItem:             item,
		AvailableTransitions: state.WorkItemStateMachine.AvailableTransitions(item.Status, ""),
	}
	if minutes, ok := item.DurationMinutes(); ok {
		detail.DurationMinutes = &minutes
	}
	return &detail
}
