package pmplan

import (
	"os"
	"strings"
	"time"

	"upkeep/authority"
	"upkeep/bizerror"
	"upkeep/common"
	"upkeep/domain"
	"upkeep/domain/workitem"
	"upkeep/journal"
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultGenerationCap = 200

var (
	GenerateDueFunc = GenerateDue

	// schedulerSession is the principal the generation pass acts as.
	schedulerSession = &session.Session{
		Identity: session.Identity{Name: "pm-scheduler", Nickname: "pm-scheduler"},
		Perms:    authority.Permissions{authority.RoleSupervisor},
	}
)

type GenerationResult struct {
	Created      int `json:"created"`
	UpdatedPlans int `json:"updatedPlans"`
	Skipped      int `json:"skipped"`
}

// GenerateDue materializes one preventive work item for every active plan
// whose due moment has passed, oldest-overdue first, and fast-forwards each
// plan past now. A failing plan is skipped, left due, and retried next pass.
func GenerateDue(maxPlans int) (*GenerationResult, error) {
	if maxPlans <= 0 {
		maxPlans = DefaultGenerationCap
	}

	now := common.CurrentTimestampFunc()
	plans := []domain.PmPlan{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where("active = ? AND next_due_at <= ?", true, now).
		Order("next_due_at ASC").Limit(maxPlans).Find(&plans).Error; err != nil {
		return nil, err
	}

	result := GenerationResult{}
	for _, plan := range plans {
		if err := generateForPlan(plan, now); err != nil {
			if err == bizerror.ErrConcurrencyConflict {
				// a concurrent pass already advanced this plan
				logrus.Infof("pm generation: plan %v already handled", plan.ID)
			} else {
				logrus.Warnf("pm generation: plan %v skipped: %v", plan.ID, err)
			}
			result.Skipped++
			continue
		}
		result.Created++
		result.UpdatedPlans++
	}

	logrus.Infof("pm generation pass: created=%d updatedPlans=%d skipped=%d",
		result.Created, result.UpdatedPlans, result.Skipped)
	return &result, nil
}

// generateForPlan couples the plan advance and the work item creation in one
// transaction guarded by a compare-and-swap on the previously read NextDueAt,
// so overlapping passes create each plan's item at most once.
func generateForPlan(plan domain.PmPlan, now types.Timestamp) error {
	newDueAt, err := AdvanceNextDueAt(plan.Frequency, plan.NextDueAt, now)
	if err != nil {
		return err
	}

	var record *journal.Record
	err1 := persistence.ActiveDataSourceManager.GormDB().Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.PmPlan{}).
			Where("id = ? AND next_due_at = ?", plan.ID, plan.NextDueAt).
			Update("next_due_at", newDueAt)
		if err := q.Error; err != nil {
			return err
		}
		if q.RowsAffected != 1 {
			return bizerror.ErrConcurrencyConflict
		}

		creation := &domain.WorkItemCreation{
			Kind: domain.KindPreventive,

			Name:        plan.Name,
			Description: RenderChecklist(plan.Checklist),

			AssetID:   plan.AssetID,
			AssetName: plan.AssetName,
		}
		_, record, err = workitem.CreateWorkItemInTx(creation, schedulerSession, tx)
		return err
	})
	if err1 != nil {
		return err1
	}

	if journal.InvokeHandlersFunc != nil {
		journal.InvokeHandlersFunc(record)
	}
	return nil
}

// AdvanceNextDueAt moves a due moment strictly forward from the previous
// value: one cadence unit at least, repeated until the result is after now.
// A dormant plan fast-forwards to its next future occurrence instead of
// producing one item per missed cycle.
func AdvanceNextDueAt(frequency domain.PlanFrequency, previous types.Timestamp, now types.Timestamp) (types.Timestamp, error) {
	if !frequency.IsValid() {
		return types.Timestamp{}, bizerror.ErrUnknownFrequency
	}
	next := addCadence(frequency, previous.Time())
	for !next.After(now.Time()) {
		next = addCadence(frequency, next)
	}
	return types.Timestamp(next), nil
}

func addCadence(frequency domain.PlanFrequency, t time.Time) time.Time {
	switch frequency {
	case domain.FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case domain.FrequencyMonthly:
		return t.AddDate(0, 1, 0)
	}
	return t
}

func RenderChecklist(checklist domain.Checklist) string {
	if len(checklist) == 0 {
		return ""
	}
	lines := make([]string, 0, len(checklist))
	for _, line := range checklist {
		lines = append(lines, "- "+line)
	}
	return strings.Join(lines, "\n")
}

// StartCron schedules the periodic generation pass. PM_GENERATE_CRON
// overrides the default of every five minutes.
func StartCron() *cron.Cron {
	spec := os.Getenv("PM_GENERATE_CRON")
	if spec == "" {
		spec = "0 */5 * * * ?"
	}
	crontab := cron.New(cron.WithSeconds())
	if _, err := crontab.AddFunc(spec, func() {
		if _, err := GenerateDueFunc(DefaultGenerationCap); err != nil {
			logrus.Errorf("pm generation pass failed: %v", err)
		}
	}); err != nil {
		logrus.Errorf("failed to schedule pm generation: %v", err)
		return nil
	}
	crontab.Start()
	return crontab
}
