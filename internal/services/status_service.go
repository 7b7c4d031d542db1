package services

import (
	"time"

	"betaportal/internal/models"
)

// Published platform build facts shown on the public status page
const (
	PlatformVersion      = "0.9.2-beta"
	PlatformOperational  = "operational"
	platformDataModels   = 145
	platformAPIEndpoints = 309
	platformPages        = 57
)

// PlatformStats are the headline build numbers
type PlatformStats struct {
	PrismaModels int `json:"prismaModels"`
	APIEndpoints int `json:"apiEndpoints"`
	Pages        int `json:"pages"`
}

// PlatformStatus is the public status payload
type PlatformStatus struct {
	Version   string                `json:"version"`
	Status    string                `json:"status"`
	Modules   []models.ModuleStatus `json:"modules"`
	Stats     PlatformStats         `json:"stats"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// StatusService reports the published state of the platform
type StatusService struct {
	now func() time.Time
}

// NewStatusService creates a new StatusService instance
func NewStatusService() *StatusService {
	return &StatusService{now: time.Now}
}

// Current returns the status snapshot stamped with the current time
func (s *StatusService) Current() *PlatformStatus {
	return &PlatformStatus{
		Version: PlatformVersion,
		Status:  PlatformOperational,
		Modules: models.ModulesStatus,
		Stats: PlatformStats{
			PrismaModels: platformDataModels,
			APIEndpoints: platformAPIEndpoints,
			Pages:        platformPages,
		},
		UpdatedAt: s.now().UTC(),
	}
}
