package workitem

import (
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/state"
	"upkeep/journal"
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	StartWorkItemFunc  = StartWorkItem
	StopWorkItemFunc   = StopWorkItem
	CancelWorkItemFunc = CancelWorkItem
	ReopenWorkItemFunc = ReopenWorkItem
)

// StartWorkItem moves an Open item to InProgress. StartedAt is stamped only
// when still unset: a reopened item keeps its original start time.
func StartWorkItem(id types.ID, s *session.Session) (*domain.WorkItemDetail, error) {
	return transitWorkItem(id, state.ActionStart, s)
}

// StopWorkItem moves an InProgress item to Done and stamps StoppedAt.
func StopWorkItem(id types.ID, s *session.Session) (*domain.WorkItemDetail, error) {
	return transitWorkItem(id, state.ActionStop, s)
}

func CancelWorkItem(id types.ID, s *session.Session) (*domain.WorkItemDetail, error) {
	return transitWorkItem(id, state.ActionCancel, s)
}

// ReopenWorkItem moves a Done or Cancelled item back to Open. StartedAt and
// StoppedAt are preserved for audit; operators clear them through update.
func ReopenWorkItem(id types.ID, s *session.Session) (*domain.WorkItemDetail, error) {
	return transitWorkItem(id, state.ActionReopen, s)
}

func transitWorkItem(id types.ID, action string, s *session.Session) (*domain.WorkItemDetail, error) {
	var updated domain.WorkItem
	var record *journal.Record

	err1 := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		item, err := findWorkItemAndCheckPerms(tx, id, s)
		if err != nil {
			return err
		}

		transition, found := state.WorkItemStateMachine.FindTransition(action, item.Status)
		if !found {
			return bizerror.ErrInvalidTransition
		}

		now := common.CurrentTimestampFunc()
		changes := map[string]interface{}{
			"status":      transition.To,
			"update_time": now,
		}
		switch action {
		case state.ActionStart:
			if item.StartedAt.Time().IsZero() {
				changes["started_at"] = now
			}
		case state.ActionStop:
			changes["stopped_at"] = now
		}

		// conditional write on the status read above: a caller racing on a
		// stale status affects zero rows and fails instead of overwriting
		db := tx.Model(&domain.WorkItem{}).
			Where("id = ? AND status = ?", id, transition.From).Update(changes)
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		record, err = CreateWorkItemTransitionRecord(item, transition, &s.Identity, now, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.WorkItem{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}

	return domain.DetailOf(updated), nil
}
