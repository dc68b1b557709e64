package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LightStatus string

const (
	LightOn  LightStatus = "on"
	LightOff LightStatus = "off"
)

func ValidLightStatus(s LightStatus) bool {
	return s == LightOn || s == LightOff
}

type PatrolLocation struct {
	ID         string  `gorm:"primaryKey;size:36" json:"id"`
	Name       string  `gorm:"size:100;not null;uniqueIndex:uq_patrol_location" json:"name"`
	BuildingID int     `gorm:"not null;uniqueIndex:uq_patrol_location" json:"building_id"`
	Household  *string `gorm:"size:50;uniqueIndex:uq_patrol_location" json:"household"`

	Building *Building `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
}

func (l *PatrolLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type LightsOutPatrol struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	BuildingID  int       `gorm:"not null" json:"building_id"`
	PatrollerID string    `gorm:"size:36;not null" json:"patroller_id"`
	PatrolTime  time.Time `gorm:"autoCreateTime" json:"patrol_time"`

	Building  *Building        `gorm:"foreignKey:BuildingID" json:"building,omitempty"`
	Patroller *User            `gorm:"foreignKey:PatrollerID" json:"patroller,omitempty"`
	Checks    []LightsOutCheck `gorm:"foreignKey:PatrolID" json:"checks,omitempty"`
}

func (p *LightsOutPatrol) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type LightsOutCheck struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	PatrolID   string      `gorm:"size:36;not null;index" json:"patrol_id"`
	LocationID string      `gorm:"size:36;not null" json:"location_id"`
	Status     LightStatus `gorm:"size:10;not null" json:"status"`
	Notes      string      `gorm:"type:text" json:"notes"`

	Location *PatrolLocation `gorm:"foreignKey:LocationID" json:"location,omitempty"`
}

func (c *LightsOutCheck) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
