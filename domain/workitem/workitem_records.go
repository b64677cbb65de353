package workitem

import (
	"upkeep/domain"
	"upkeep/domain/state"
	"upkeep/journal"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var transitionCategories = map[string]journal.Category{
	state.ActionStart:  journal.CategoryStarted,
	state.ActionStop:   journal.CategoryStopped,
	state.ActionCancel: journal.CategoryCancelled,
	state.ActionReopen: journal.CategoryReopened,
}

func CreateWorkItemCreatedRecord(item *domain.WorkItem, identity *session.Identity,
	timestamp types.Timestamp, db *gorm.DB) (*journal.Record, error) {
	return journal.CreateRecord(journal.Entry{
		WorkItemID: item.ID, WorkItemName: item.Name,
		Category: journal.CategoryCreated,
	}, identity, timestamp, db)
}

func CreateWorkItemTransitionRecord(item *domain.WorkItem, transition state.Transition,
	identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*journal.Record, error) {
	return journal.CreateRecord(journal.Entry{
		WorkItemID: item.ID, WorkItemName: item.Name,
		Category:   transitionCategories[transition.Name],
		FromStatus: transition.From, ToStatus: transition.To,
		Message: transition.Name,
	}, identity, timestamp, db)
}

func CreateWorkItemPropertyUpdatedRecord(item *domain.WorkItem, updates []journal.UpdatedProperty,
	identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*journal.Record, error) {
	return journal.CreateRecord(journal.Entry{
		WorkItemID: item.ID, WorkItemName: item.Name,
		Category:          journal.CategoryPropertyUpdated,
		UpdatedProperties: updates,
	}, identity, timestamp, db)
}

func CreateWorkItemAssignmentChangedRecord(item *domain.WorkItem, updates []journal.UpdatedProperty,
	identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*journal.Record, error) {
	return journal.CreateRecord(journal.Entry{
		WorkItemID: item.ID, WorkItemName: item.Name,
		Category:          journal.CategoryAssignmentChanged,
		UpdatedProperties: updates,
	}, identity, timestamp, db)
}

func CreateWorkItemCommentedRecord(item *domain.WorkItem, message string,
	identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*journal.Record, error) {
	return journal.CreateRecord(journal.Entry{
		WorkItemID: item.ID, WorkItemName: item.Name,
		Category: journal.CategoryCommentAdded,
		Message:  message,
	}, identity, timestamp, db)
}
