package partusage

import (
	"errors"

	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/state"
	"upkeep/idgen"
	"upkeep/journal"
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	partUsageIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	AddPartUsageFunc    = AddPartUsage
	ListPartUsagesFunc  = ListPartUsages
	RemovePartUsageFunc = RemovePartUsage
)

// PartUsage is one consumed-part line of a work order. Extra jobs carry none.
type PartUsage struct {
	ID         types.ID `json:"id" gorm:"primary_key"`
	WorkItemID types.ID `json:"workItemId"`

	PartID   types.ID `json:"partId"`
	PartName string   `json:"partName"`
	Quantity int      `json:"quantity"`

	CreateTime  types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	CreatorID   types.ID        `json:"creatorId"`
	CreatorName string          `json:"creatorName"`
}

func (r *PartUsage) TableName() string {
	return "part_usages"
}

type PartUsageCreation struct {
	WorkItemID types.ID `json:"workItemId" binding:"required"`
	PartID     types.ID `json:"partId" binding:"required"`
	PartName   string   `json:"partName" binding:"required"`
	Quantity   int      `json:"quantity" binding:"required,gte=1"`
}

func AddPartUsage(req PartUsageCreation, s *session.Session) (*PartUsage, error) {
	var r *PartUsage
	var record *journal.Record
	txErr := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		item, err := findWorkItemAndCheckPerms(tx, req.WorkItemID, s)
		if err != nil {
			return err
		}
		if item.Kind == domain.KindExtra {
			return &bizerror.ErrBadParam{Cause: errors.New("extra jobs have no part usages")}
		}

		u := PartUsage{
			ID:         idgen.NextID(partUsageIdWorker),
			WorkItemID: item.ID,

			PartID:   req.PartID,
			PartName: req.PartName,
			Quantity: req.Quantity,

			CreateTime:  common.CurrentTimestampFunc(),
			CreatorID:   s.Identity.ID,
			CreatorName: s.Identity.Nickname,
		}
		if err := tx.Save(&u).Error; err != nil {
			return err
		}
		r = &u

		record, err = journal.CreateRecord(journal.Entry{
			WorkItemID: item.ID, WorkItemName: item.Name,
			Category: journal.CategoryPartAdded,
			Message:  req.PartName,
		}, &s.Identity, u.CreateTime, tx)
		return err
	})
	if txErr != nil {
		return nil, txErr
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}
	return r, nil
}

func ListPartUsages(workItemID types.ID, s *session.Session) ([]PartUsage, error) {
	var r []PartUsage
	txErr := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findWorkItemAndCheckPerms(tx, workItemID, s); err != nil {
			return err
		}
		return tx.Where(&PartUsage{WorkItemID: workItemID}).Order("create_time ASC, id ASC").Find(&r).Error
	})
	if txErr != nil {
		return nil, txErr
	}
	return r, nil
}

func RemovePartUsage(id types.ID, s *session.Session) error {
	var record *journal.Record
	txErr := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		usage := PartUsage{ID: id}
		if err := tx.Where(&usage).First(&usage).Error; err != nil {
			return err
		}
		item, err := findWorkItemAndCheckPerms(tx, usage.WorkItemID, s)
		if err != nil {
			return err
		}

		if err := tx.Delete(PartUsage{}, "id = ?", id).Error; err != nil {
			return err
		}

		record, err = journal.CreateRecord(journal.Entry{
			WorkItemID: item.ID, WorkItemName: item.Name,
			Category: journal.CategoryPartRemoved,
			Message:  usage.PartName,
		}, &s.Identity, common.CurrentTimestampFunc(), tx)
		return err
	})
	if txErr != nil {
		return txErr
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}
	return nil
}

func findWorkItemAndCheckPerms(db *gorm.DB, id types.ID, s *session.Session) (*domain.WorkItem, error) {
	var item domain.WorkItem
	if err := db.Where(&domain.WorkItem{ID: id}).First(&item).Error; err != nil {
		return nil, err
	}
	if s == nil || !s.Perms.HasMaintenanceRole() {
		return nil, bizerror.ErrForbidden
	}
	if item.Status == state.Cancelled {
		return nil, bizerror.ErrImmutable
	}
	return &item, nil
}
