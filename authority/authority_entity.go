package authority

import (
	"strings"
)

const (
	// RoleSupervisor is the elevated rank: supervisors may mutate any work
	// item and assign extra jobs to other people.
	RoleSupervisor = "supervisor"
	// RoleTechnician is the base maintenance rank.
	RoleTechnician = "technician"
)

type Permissions []string

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if c.HasRole(role) {
			return true
		}
	}
	return false
}

func (c Permissions) HasElevatedRank() bool {
	return c.HasRole(RoleSupervisor)
}

func (c Permissions) HasMaintenanceRole() bool {
	return c.HasAnyRole(RoleSupervisor, RoleTechnician)
}
