package pmplan

import (
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/idgen"
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

var (
	planIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreatePlanFunc     = CreatePlan
	QueryPlansFunc     = QueryPlans
	DetailPlanFunc     = DetailPlan
	DeactivatePlanFunc = DeactivatePlan
)

func CreatePlan(c *domain.PmPlanCreation, s *session.Session) (*domain.PmPlan, error) {
	if !s.Perms.HasElevatedRank() {
		return nil, bizerror.ErrForbidden
	}
	if !c.Frequency.IsValid() {
		return nil, bizerror.ErrUnknownFrequency
	}

	now := common.CurrentTimestampFunc()
	nextDueAt := c.NextDueAt
	if nextDueAt.Time().IsZero() {
		// first occurrence is one cadence unit out
		advanced, err := AdvanceNextDueAt(c.Frequency, now, now)
		if err != nil {
			return nil, err
		}
		nextDueAt = advanced
	}

	plan := domain.PmPlan{
		ID: idgen.NextID(planIdWorker),

		Name:      c.Name,
		AssetID:   c.AssetID,
		AssetName: c.AssetName,

		Frequency: c.Frequency,
		Checklist: c.Checklist,

		NextDueAt: nextDueAt,
		Active:    true,

		CreateTime:  now,
		CreatorID:   s.Identity.ID,
		CreatorName: s.Identity.Nickname,
	}
	if err := persistence.ActiveDataSourceManager.GormDB().Create(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func QueryPlans(q *domain.PmPlanQuery, s *session.Session) (*[]domain.PmPlan, error) {
	plans := []domain.PmPlan{}
	if !s.Perms.HasMaintenanceRole() {
		return &plans, nil
	}

	db := persistence.ActiveDataSourceManager.GormDB().Model(&domain.PmPlan{})
	if q.AssetID != 0 {
		db = db.Where("asset_id = ?", q.AssetID)
	}
	if err := db.Order("next_due_at ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return &plans, nil
}

func DetailPlan(id types.ID, s *session.Session) (*domain.PmPlan, error) {
	if !s.Perms.HasMaintenanceRole() {
		return nil, bizerror.ErrForbidden
	}
	plan := domain.PmPlan{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where(&domain.PmPlan{ID: id}).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// DeactivatePlan switches a plan off; plans are never deleted so generated
// work items keep a resolvable origin.
func DeactivatePlan(id types.ID, s *session.Session) error {
	if !s.Perms.HasElevatedRank() {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB().Model(&domain.PmPlan{}).
		Where("id = ?", id).Update("active", false)
	if err := db.Error; err != nil {
		return err
	}
	if db.RowsAffected != 1 {
		return bizerror.ErrNotFound
	}
	return nil
}
