package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	RoleTeamLead         AgentRole = "TEAM_LEAD"
	RoleTechnicalLead    AgentRole = "TECHNICAL_LEAD"
	RoleTechnician       AgentRole = "TECHNICIAN"
	RoleServiceOfficer   AgentRole = "SERVICE_OFFICER"
	RoleClient           AgentRole = "CLIENT"
	RoleVirtualAssistant AgentRole = "VIRTUAL_ASSISTANT"
)

// roleRank orders the assignable hierarchy; lower is more senior.
var roleRank = map[AgentRole]int{
	RoleTeamLead:       0,
	RoleTechnicalLead:  1,
	RoleTechnician:     2,
	RoleServiceOfficer: 3,
}

// RoleIndex returns the position of role in the hierarchy. Non-assignable roles sort last.
func RoleIndex(role AgentRole) int {
	if idx, ok := roleRank[role]; ok {
		return idx
	}
	return len(roleRank)
}

// DepartmentRoles are the roles eligible for department routing.
var DepartmentRoles = []AgentRole{RoleTeamLead, RoleTechnicalLead, RoleTechnician}

// Agent models a support agent, the reserved assistant account, or an administrator.
type Agent struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AgentRole
	DepartmentID *string
	Skills       []string
	IsAssistant  bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
