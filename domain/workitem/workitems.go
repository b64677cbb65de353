package workitem

import (
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
	workItemIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkItemFunc = CreateWorkItem
	UpdateWorkItemFunc = UpdateWorkItem
	DetailWorkItemFunc = DetailWorkItem
	QueryWorkItemsFunc = QueryWorkItems
	AddCommentFunc     = AddComment
)

func CreateWorkItem(c *domain.WorkItemCreation, s *session.Session) (*domain.WorkItemDetail, error) {
	var detail *domain.WorkItemDetail
	var record *journal.Record

	err1 := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		var err error
		detail, record, err = CreateWorkItemInTx(c, s, tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}

	return detail, nil
}

// CreateWorkItemInTx runs the creation inside a caller-owned transaction; the
// PM generation pass uses it to couple item creation with its plan advance.
// The caller is responsible for invoking the journal handlers after commit.
func CreateWorkItemInTx(c *domain.WorkItemCreation, s *session.Session, tx *gorm.DB) (*domain.WorkItemDetail, *journal.Record, error) {
	if !c.Kind.IsValid() {
		return nil, nil, bizerror.ErrUnknownKind
	}
	if !s.Perms.HasMaintenanceRole() {
		return nil, nil, bizerror.ErrForbidden
	}
	// only an elevated rank may hand an extra job to somebody else
	if c.Kind == domain.KindExtra && c.AssigneeID != 0 && c.AssigneeID != s.Identity.ID &&
		!s.Perms.HasElevatedRank() {
		return nil, nil, bizerror.ErrForbidden
	}

	now := common.CurrentTimestampFunc()
	item := domain.WorkItem{
		ID:   idgen.NextID(workItemIdWorker),
		Kind: c.Kind,

		Name:        c.Name,
		Description: c.Description,
		Status:      state.Open,

		AssetID:      c.AssetID,
		AssetName:    c.AssetName,
		AssigneeID:   c.AssigneeID,
		AssigneeName: c.AssigneeName,

		CreateTime: now,
		UpdateTime: now,

		CreatorID:   s.Identity.ID,
		CreatorName: s.Identity.Nickname,
		OwnerID:     s.Identity.ID,
		OwnerName:   s.Identity.Nickname,
	}

	if err := tx.Create(&item).Error; err != nil {
		return nil, nil, err
	}

	record, err := CreateWorkItemCreatedRecord(&item, &s.Identity, now, tx)
	if err != nil {
		return nil, nil, err
	}

	return domain.DetailOf(item), record, nil
}

func DetailWorkItem(id types.ID, s *session.Session) (*domain.WorkItemDetail, error) {
	item := domain.WorkItem{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where(&domain.WorkItem{ID: id}).First(&item).Error; err != nil {
		return nil, err
	}
	if !s.Perms.HasMaintenanceRole() {
		return nil, bizerror.ErrForbidden
	}
	return domain.DetailOf(item), nil
}

func QueryWorkItems(query *domain.WorkItemQuery, s *session.Session) (*[]domain.WorkItem, error) {
	items := []domain.WorkItem{}
	if !s.Perms.HasMaintenanceRole() {
		return &items, nil
	}

	db := persistence.ActiveDataSourceManager.GormDB()
	q := db.Model(&domain.WorkItem{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Kind != "" {
		q = q.Where("kind = ?", query.Kind)
	}
	if query.AssetID != 0 {
		q = q.Where("asset_id = ?", query.AssetID)
	}
	if query.CreatedFrom != nil {
		q = q.Where("create_time >= ?", *query.CreatedFrom)
	}
	if query.CreatedTo != nil {
		q = q.Where("create_time <= ?", *query.CreatedTo)
	}

	if err := q.Order("create_time DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return &items, nil
}

func UpdateWorkItem(id types.ID, u *domain.WorkItemUpdating, s *session.Session) (*domain.WorkItemDetail, error) {
	var updated domain.WorkItem
	var records []*journal.Record

	err1 := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		origin, err := findWorkItemAndCheckPerms(tx, id, s)
		if err != nil {
			return err
		}
		if origin.Status == state.Cancelled {
			return bizerror.ErrImmutable
		}

		changes, updatedProperties, assignmentChanges := diffWorkItemUpdating(origin, u)
		if len(changes) == 0 {
			updated = *origin
			return nil
		}

		startedAt, stoppedAt := origin.StartedAt, origin.StoppedAt
		if u.StartedAt != nil {
			startedAt = *u.StartedAt
		}
		if u.StoppedAt != nil {
			stoppedAt = *u.StoppedAt
		}
		if !startedAt.Time().IsZero() && !stoppedAt.Time().IsZero() &&
			stoppedAt.Time().Before(startedAt.Time()) {
			return bizerror.ErrInvalidRange
		}

		now := common.CurrentTimestampFunc()
		changes["update_time"] = now

		// the status guard catches an item cancelled by a concurrent caller
		db := tx.Model(&domain.WorkItem{}).
			Where("id = ? AND status <> ?", id, state.Cancelled).Update(changes)
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrImmutable
		}

		if len(updatedProperties) > 0 {
			record, err := CreateWorkItemPropertyUpdatedRecord(origin, updatedProperties, &s.Identity, now, tx)
			if err != nil {
				return err
			}
			records = append(records, record)
		}
		if len(assignmentChanges) > 0 {
			record, err := CreateWorkItemAssignmentChangedRecord(origin, assignmentChanges, &s.Identity, now, tx)
			if err != nil {
				return err
			}
			records = append(records, record)
		}

		return tx.Where(&domain.WorkItem{ID: id}).First(&updated).Error
	})
	if err1 != nil {
		return nil, err1
	}

	if journal.InvokeHandlersFunc != nil {
		for _, record := range records {
			journal.InvokeHandlersFunc(record)
		}
	}

	return domain.DetailOf(updated), nil
}

// AddComment appends a COMMENT_ADDED journal record; the item row itself is
// untouched, so comments stay possible on a Cancelled item. Only field updates
// and part usages are blocked by cancellation.
func AddComment(id types.ID, c *domain.CommentCreation, s *session.Session) (*journal.Record, error) {
	var record *journal.Record
	err1 := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		item, err := findWorkItemAndCheckPerms(tx, id, s)
		if err != nil {
			return err
		}

		record, err = CreateWorkItemCommentedRecord(item, c.Message, &s.Identity, common.CurrentTimestampFunc(), tx)
		return err
	})
	if err1 != nil {
		return nil, err1
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}
	return record, nil
}

// findWorkItemAndCheckPerms is the authorization gate of every mutating call:
// elevated ranks pass; extra jobs additionally demand the creator or the
// current assignee; plain work orders demand a maintenance role.
func findWorkItemAndCheckPerms(db *gorm.DB, id types.ID, s *session.Session) (*domain.WorkItem, error) {
	var item domain.WorkItem
	if err := db.Where(&domain.WorkItem{ID: id}).First(&item).Error; err != nil {
		return nil, err
	}
	if s == nil || !s.Perms.HasMaintenanceRole() {
		return nil, bizerror.ErrForbidden
	}
	if item.Kind == domain.KindExtra && !s.Perms.HasElevatedRank() &&
		s.Identity.ID != item.CreatorID && s.Identity.ID != item.AssigneeID {
		return nil, bizerror.ErrForbidden
	}
	return &item, nil
}

func diffWorkItemUpdating(origin *domain.WorkItem, u *domain.WorkItemUpdating) (
	map[string]interface{}, []journal.UpdatedProperty, []journal.UpdatedProperty) {

	changes := map[string]interface{}{}
	updatedProperties := []journal.UpdatedProperty{}
	assignmentChanges := []journal.UpdatedProperty{}

	if u.Name != nil && *u.Name != origin.Name {
		changes["name"] = *u.Name
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "Name", OldValue: origin.Name, NewValue: *u.Name})
	}
	if u.Description != nil && *u.Description != origin.Description {
		changes["description"] = *u.Description
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "Description", OldValue: origin.Description, NewValue: *u.Description})
	}
	if u.AssetID != nil && *u.AssetID != origin.AssetID {
		changes["asset_id"] = *u.AssetID
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "AssetID", OldValue: origin.AssetID.String(), NewValue: u.AssetID.String()})
	}
	if u.AssetName != nil && *u.AssetName != origin.AssetName {
		changes["asset_name"] = *u.AssetName
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "AssetName", OldValue: origin.AssetName, NewValue: *u.AssetName})
	}
	if u.AssigneeID != nil && *u.AssigneeID != origin.AssigneeID {
		changes["assignee_id"] = *u.AssigneeID
		assignmentChanges = append(assignmentChanges, journal.UpdatedProperty{
			PropertyName: "AssigneeID", OldValue: origin.AssigneeID.String(), NewValue: u.AssigneeID.String()})
	}
	if u.AssigneeName != nil && *u.AssigneeName != origin.AssigneeName {
		changes["assignee_name"] = *u.AssigneeName
		assignmentChanges = append(assignmentChanges, journal.UpdatedProperty{
			PropertyName: "AssigneeName", OldValue: origin.AssigneeName, NewValue: *u.AssigneeName})
	}
	if u.StartedAt != nil && !u.StartedAt.Time().Equal(origin.StartedAt.Time()) {
		changes["started_at"] = *u.StartedAt
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "StartedAt", OldValue: origin.StartedAt.String(), NewValue: u.StartedAt.String()})
	}
	if u.StoppedAt != nil && !u.StoppedAt.Time().Equal(origin.StoppedAt.Time()) {
		changes["stopped_at"] = *u.StoppedAt
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "StoppedAt", OldValue: origin.StoppedAt.String(), NewValue: u.StoppedAt.String()})
	}
	if u.Defect != nil && *u.Defect != origin.Defect {
		changes["defect"] = *u.Defect
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "Defect", OldValue: origin.Defect, NewValue: *u.Defect})
	}
	if u.Cause != nil && *u.Cause != origin.Cause {
		changes["cause"] = *u.Cause
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "Cause", OldValue: origin.Cause, NewValue: *u.Cause})
	}
	if u.Solution != nil && *u.Solution != origin.Solution {
		changes["solution"] = *u.Solution
		updatedProperties = append(updatedProperties, journal.UpdatedProperty{
			PropertyName: "Solution", OldValue: origin.Solution, NewValue: *u.Solution})
	}

	return changes, updatedProperties, assignmentChanges
}
