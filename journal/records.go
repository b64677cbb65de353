package journal

import (
	"upkeep/persistence"
	"upkeep/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// The journal is an append-only ledger: CreateRecord and ListRecords are the
// whole surface, there is no update or delete.

var (
	RecordPersistCreateFunc = recordPersistCreate
	ListRecordsFunc         = ListRecords
)

const DefaultListLimit = 100

func CreateRecord(entry Entry, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*Record, error) {
	record := Record{
		Entry:     entry,
		Timestamp: timestamp,
	}
	record.CreatorID = identity.ID
	record.CreatorName = identity.Name

	if err := RecordPersistCreateFunc(&record, db); err != nil {
		return nil, err
	}
	return &record, nil
}

func recordPersistCreate(record *Record, db *gorm.DB) error {
	return db.Create(record).Error
}

// ListRecords returns the records of one work item ordered by timestamp
// ascending, insertion order breaking ties.
func ListRecords(workItemID types.ID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	records := []Record{}
	db := persistence.ActiveDataSourceManager.GormDB()
	if err := db.Where(&Record{Entry: Entry{WorkItemID: workItemID}}).
		Order("timestamp ASC, id ASC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
