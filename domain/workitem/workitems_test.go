package workitem_test

import (
	"testing"
	"time"

	"upkeep/authority"
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/state"
	"upkeep/domain/workitem"
	"upkeep/domain/workitem/partusage"
	"upkeep/journal"
	"upkeep/persistence"
	"upkeep/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) (*[]journal.Record, *[]journal.Record) {
	db := testinfra.StartMysqlTestDatabase("upkeep")
	*testDatabase = db
	Expect(db.DS.GormDB().AutoMigrate(&domain.WorkItem{}, &domain.PmPlan{},
		&journal.Record{}, &partusage.PartUsage{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS

	persistedRecords := []journal.Record{}
	journal.RecordPersistCreateFunc = func(record *journal.Record, db *gorm.DB) error {
		persistedRecords = append(persistedRecords, *record)
		return nil
	}
	handedRecords := []journal.Record{}
	journal.InvokeHandlersFunc = func(record *journal.Record) []journal.RecordHandleResult {
		handedRecords = append(handedRecords, *record)
		return nil
	}

	return &persistedRecords, &handedRecords
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
	common.CurrentTimestampFunc = types.CurrentTimestamp
}

func TestCreateWorkItem(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should be able to catch db errors", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, handedRecords := setup(t, &testDatabase)

		testDatabase.DS.GormDB().DropTable(&domain.WorkItem{})
		creation := &domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}
		detail, err := workitem.CreateWorkItem(creation, testinfra.BuildSession(100, authority.RoleTechnician))
		Expect(detail).To(BeNil())
		Expect(err).ToNot(BeNil())
		Expect(len(*persistedRecords)).To(BeZero())
		Expect(len(*handedRecords)).To(BeZero())
	})

	t.Run("should fail on unknown kind", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		creation := &domain.WorkItemCreation{Kind: domain.WorkItemKind("UNKNOWN"), Name: "fix pump"}
		detail, err := workitem.CreateWorkItem(creation, testinfra.BuildSession(100, authority.RoleTechnician))
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrUnknownKind))
		Expect(len(*persistedRecords)).To(BeZero())
	})

	t.Run("should forbid callers without a maintenance role", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		creation := &domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}
		detail, err := workitem.CreateWorkItem(creation, testinfra.BuildSession(100, "viewer"))
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))
		Expect(len(*persistedRecords)).To(BeZero())
	})

	t.Run("should forbid a technician to hand an extra job to somebody else", func(t *testing.T) {
		defer teardown(t, testDatabase)
		_, _ = setup(t, &testDatabase)

		creation := &domain.WorkItemCreation{Kind: domain.KindExtra, Name: "help on site", AssigneeID: 200}
		detail, err := workitem.CreateWorkItem(creation, testinfra.BuildSession(100, authority.RoleTechnician))
		Expect(detail).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))

		// a supervisor may
		detail, err = workitem.CreateWorkItem(creation, testinfra.BuildSession(100, authority.RoleSupervisor))
		Expect(err).To(BeNil())
		Expect(detail.AssigneeID).To(Equal(types.ID(200)))
		Expect(detail.OwnerID).To(Equal(types.ID(100)))
	})

	t.Run("should create work item with created journal record", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, handedRecords := setup(t, &testDatabase)

		now := types.TimestampOfDate(2021, 6, 1, 10, 0, 0, 0, time.Local)
		common.CurrentTimestampFunc = func() types.Timestamp { return now }

		creation := &domain.WorkItemCreation{Kind: domain.KindPreventive, Name: "weekly lube",
			Description: "- check oil", AssetID: 3000, AssetName: "press #3"}
		detail, err := workitem.CreateWorkItem(creation, testinfra.BuildSession(100, authority.RoleTechnician))
		Expect(err).To(BeNil())
		Expect(detail.ID).ToNot(BeZero())
		Expect(detail.Kind).To(Equal(domain.KindPreventive))
		Expect(detail.Status).To(Equal(state.Open))
		Expect(detail.Name).To(Equal("weekly lube"))
		Expect(detail.AssetID).To(Equal(types.ID(3000)))
		Expect(detail.CreatorID).To(Equal(types.ID(100)))
		Expect(detail.CreateTime.Time()).To(Equal(now.Time()))
		Expect(detail.AvailableTransitions).To(HaveLen(2))
		Expect(detail.DurationMinutes).To(BeNil())

		Expect(len(*persistedRecords)).To(Equal(1))
		Expect((*persistedRecords)[0].Category).To(Equal(journal.CategoryCreated))
		Expect((*persistedRecords)[0].WorkItemID).To(Equal(detail.ID))
		Expect((*persistedRecords)[0].Timestamp.Time()).To(Equal(now.Time()))
		Expect(*handedRecords).To(Equal(*persistedRecords))
	})
}

func TestUpdateWorkItem(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should journal one property-updated record per update carrying each changed field", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())

		name := "fix pump (east hall)"
		defect := "leaking seal"
		updated, err := workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name, Defect: &defect}, s)
		Expect(err).To(BeNil())
		Expect(updated.Name).To(Equal(name))
		Expect(updated.Defect).To(Equal(defect))

		Expect(len(*persistedRecords)).To(Equal(2)) // created + property updated
		record := (*persistedRecords)[1]
		Expect(record.Category).To(Equal(journal.CategoryPropertyUpdated))
		Expect(record.UpdatedProperties).To(Equal(journal.UpdatedProperties{
			{PropertyName: "Name", OldValue: "fix pump", NewValue: name},
			{PropertyName: "Defect", OldValue: "", NewValue: defect},
		}))
	})

	t.Run("should journal assignment changes separately", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleSupervisor)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())

		assignee := types.ID(200)
		assigneeName := "john"
		_, err = workitem.UpdateWorkItem(detail.ID,
			&domain.WorkItemUpdating{AssigneeID: &assignee, AssigneeName: &assigneeName}, s)
		Expect(err).To(BeNil())

		Expect(len(*persistedRecords)).To(Equal(2))
		record := (*persistedRecords)[1]
		Expect(record.Category).To(Equal(journal.CategoryAssignmentChanged))
		Expect(record.UpdatedProperties).To(HaveLen(2))
	})

	t.Run("should journal nothing when nothing changed", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())

		name := "fix pump"
		_, err = workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name}, s)
		Expect(err).To(BeNil())
		Expect(len(*persistedRecords)).To(Equal(1)) // only the created record
	})

	t.Run("should reject updates on a cancelled item", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())
		_, err = workitem.CancelWorkItem(detail.ID, s)
		Expect(err).To(BeNil())

		recordsBefore := len(*persistedRecords)
		name := "fix pump again"
		updated, err := workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name}, s)
		Expect(updated).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrImmutable))
		Expect(len(*persistedRecords)).To(Equal(recordsBefore))
	})

	t.Run("should allow manual backfill of start and stop times within a valid range", func(t *testing.T) {
		defer teardown(t, testDatabase)
		_, _ = setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())

		startedAt := types.TimestampOfDate(2021, 6, 1, 9, 0, 0, 0, time.Local)
		stoppedAt := types.TimestampOfDate(2021, 6, 1, 8, 0, 0, 0, time.Local)
		_, err = workitem.UpdateWorkItem(detail.ID,
			&domain.WorkItemUpdating{StartedAt: &startedAt, StoppedAt: &stoppedAt}, s)
		Expect(err).To(Equal(bizerror.ErrInvalidRange))

		stoppedAt = types.TimestampOfDate(2021, 6, 1, 9, 45, 0, 0, time.Local)
		updated, err := workitem.UpdateWorkItem(detail.ID,
			&domain.WorkItemUpdating{StartedAt: &startedAt, StoppedAt: &stoppedAt}, s)
		Expect(err).To(BeNil())
		Expect(updated.StartedAt.Time()).To(Equal(startedAt.Time()))
		Expect(updated.StoppedAt.Time()).To(Equal(stoppedAt.Time()))
		Expect(*updated.DurationMinutes).To(Equal(int64(45)))
	})

	t.Run("should forbid an unrelated technician to mutate an extra job", func(t *testing.T) {
		defer teardown(t, testDatabase)
		_, _ = setup(t, &testDatabase)

		creator := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindExtra, Name: "help on site"}, creator)
		Expect(err).To(BeNil())

		name := "changed"
		_, err = workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name},
			testinfra.BuildSession(300, authority.RoleTechnician))
		Expect(err).To(Equal(bizerror.ErrForbidden))

		// creator, assignee and supervisor all pass
		_, err = workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name}, creator)
		Expect(err).To(BeNil())
		_, err = workitem.UpdateWorkItem(detail.ID, &domain.WorkItemUpdating{Name: &name},
			testinfra.BuildSession(300, authority.RoleSupervisor))
		Expect(err).To(BeNil())
	})
}

func TestQueryWorkItems(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should filter by status, kind, asset and creation range", func(t *testing.T) {
		defer teardown(t, testDatabase)
		_, _ = setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)

		common.CurrentTimestampFunc = func() types.Timestamp {
			return types.TimestampOfDate(2021, 6, 1, 10, 0, 0, 0, time.Local)
		}
		item1, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump", AssetID: 1}, s)
		Expect(err).To(BeNil())

		common.CurrentTimestampFunc = func() types.Timestamp {
			return types.TimestampOfDate(2021, 6, 5, 10, 0, 0, 0, time.Local)
		}
		item2, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindPreventive, Name: "weekly lube", AssetID: 2}, s)
		Expect(err).To(BeNil())
		_, err = workitem.StartWorkItem(item2.ID, s)
		Expect(err).To(BeNil())

		items, err := workitem.QueryWorkItems(&domain.WorkItemQuery{Status: state.Open}, s)
		Expect(err).To(BeNil())
		Expect(*items).To(HaveLen(1))
		Expect((*items)[0].ID).To(Equal(item1.ID))

		items, err = workitem.QueryWorkItems(&domain.WorkItemQuery{Kind: domain.KindPreventive}, s)
		Expect(err).To(BeNil())
		Expect(*items).To(HaveLen(1))
		Expect((*items)[0].ID).To(Equal(item2.ID))

		items, err = workitem.QueryWorkItems(&domain.WorkItemQuery{AssetID: 1}, s)
		Expect(err).To(BeNil())
		Expect(*items).To(HaveLen(1))

		from := time.Date(2021, 6, 3, 0, 0, 0, 0, time.Local)
		items, err = workitem.QueryWorkItems(&domain.WorkItemQuery{CreatedFrom: &from}, s)
		Expect(err).To(BeNil())
		Expect(*items).To(HaveLen(1))
		Expect((*items)[0].ID).To(Equal(item2.ID))

		items, err = workitem.QueryWorkItems(&domain.WorkItemQuery{}, s)
		Expect(err).To(BeNil())
		Expect(*items).To(HaveLen(2))

		// no maintenance role sees nothing
		items, err = workitem.QueryWorkItems(&domain.WorkItemQuery{}, testinfra.BuildSession(1, "viewer"))
		Expect(err).To(BeNil())
		Expect(*items).To(BeEmpty())
	})
}

func TestAddComment(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should append a comment record", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())

		record, err := workitem.AddComment(detail.ID, &domain.CommentCreation{Message: "waiting for parts"}, s)
		Expect(err).To(BeNil())
		Expect(record.Category).To(Equal(journal.CategoryCommentAdded))
		Expect(record.Message).To(Equal("waiting for parts"))
		Expect(len(*persistedRecords)).To(Equal(2))
	})

	t.Run("should allow comments on a cancelled item", func(t *testing.T) {
		defer teardown(t, testDatabase)
		persistedRecords, _ := setup(t, &testDatabase)

		s := testinfra.BuildSession(100, authority.RoleTechnician)
		detail, err := workitem.CreateWorkItem(&domain.WorkItemCreation{Kind: domain.KindAdHoc, Name: "fix pump"}, s)
		Expect(err).To(BeNil())
		_, err = workitem.CancelWorkItem(detail.ID, s)
		Expect(err).To(BeNil())

		// the item row stays frozen, the journal does not
		record, err := workitem.AddComment(detail.ID, &domain.CommentCreation{Message: "duplicate of another order"}, s)
		Expect(err).To(BeNil())
		Expect(record.Category).To(Equal(journal.CategoryCommentAdded))

		last := (*persistedRecords)[len(*persistedRecords)-1]
		Expect(last.Category).To(Equal(journal.CategoryCommentAdded))
		refreshed, err := workitem.DetailWorkItem(detail.ID, s)
		Expect(err).To(BeNil())
		Expect(refreshed.Status).To(Equal(state.Cancelled))
	})
}
