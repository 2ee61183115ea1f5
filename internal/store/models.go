package store

import (
	"time"

	"github.com/user/incidentbot/internal/types"
)

// Subscriber is a chat id registered to receive incident broadcasts.
type Subscriber struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// Incident is the persisted form of types.Incident.
type Incident struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Date         string    `gorm:"type:text"`
	Time         string    `gorm:"type:text"`
	Segment      string    `gorm:"type:text"`
	Track        string    `gorm:"type:text"`
	KmPk         string    `gorm:"column:km_pk;type:text"`
	IncidentType string    `gorm:"type:text"`
	Description  string    `gorm:"type:text"`
	Chairman     string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"index"`
}

// AllModels returns the models migrated at startup.
func AllModels() []interface{} {
	return []interface{}{
		&Subscriber{},
		&Incident{},
	}
}

func fromIncident(inc *types.Incident) *Incident {
	return &Incident{
		Date:         inc.Date,
		Time:         inc.Time,
		Segment:      inc.Segment,
		Track:        inc.Track,
		KmPk:         inc.KmPk,
		IncidentType: inc.IncidentType,
		Description:  inc.Description,
		Chairman:     inc.Chairman,
	}
}

func (r *Incident) toIncident() *types.Incident {
	return &types.Incident{
		ID:           r.ID,
		Date:         r.Date,
		Time:         r.Time,
		Segment:      r.Segment,
		Track:        r.Track,
		KmPk:         r.KmPk,
		IncidentType: r.IncidentType,
		Description:  r.Description,
		Chairman:     r.Chairman,
		CreatedAt:    r.CreatedAt,
	}
}
