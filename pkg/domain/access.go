package domain

// AccessLevel is a named tier of authority a guardian relationship grants.
type AccessLevel string

const (
	LevelFullGuardian      AccessLevel = "FULL_GUARDIAN"
	LevelSharedGuardian    AccessLevel = "SHARED_GUARDIAN"
	LevelTemporaryGuardian AccessLevel = "TEMPORARY_GUARDIAN"
	LevelReadOnly          AccessLevel = "READ_ONLY"
	LevelEmergencyContact  AccessLevel = "EMERGENCY_CONTACT"
)

// AccessLevels lists every defined level, used by exhaustive tests and
// request validation.
var AccessLevels = []AccessLevel{
	LevelFullGuardian,
	LevelSharedGuardian,
	LevelTemporaryGuardian,
	LevelReadOnly,
	LevelEmergencyContact,
}

func (l AccessLevel) IsValid() bool {
	switch l {
	case LevelFullGuardian, LevelSharedGuardian, LevelTemporaryGuardian,
		LevelReadOnly, LevelEmergencyContact:
		return true
	}
	return false
}

func (l AccessLevel) String() string { return string(l) }

// Action is an operation a guardian may perform on behalf of a minor.
type Action string

const (
	ActionReadProfile         Action = "READ_PROFILE"
	ActionUpdateProfile       Action = "UPDATE_PROFILE"
	ActionDeleteProfile       Action = "DELETE_PROFILE"
	ActionReadConversations   Action = "READ_CONVERSATIONS"
	ActionDeleteConversations Action = "DELETE_CONVERSATIONS"
	ActionExportData          Action = "EXPORT_DATA"
	ActionManageSettings      Action = "MANAGE_SETTINGS"
	ActionManageRelationships Action = "MANAGE_RELATIONSHIPS"
	ActionReadAnalytics       Action = "READ_ANALYTICS"
	ActionGrantConsent        Action = "GRANT_CONSENT"
)

// Actions lists every defined action.
var Actions = []Action{
	ActionReadProfile,
	ActionUpdateProfile,
	ActionDeleteProfile,
	ActionReadConversations,
	ActionDeleteConversations,
	ActionExportData,
	ActionManageSettings,
	ActionManageRelationships,
	ActionReadAnalytics,
	ActionGrantConsent,
}

func (a Action) IsValid() bool {
	switch a {
	case ActionReadProfile, ActionUpdateProfile, ActionDeleteProfile,
		ActionReadConversations, ActionDeleteConversations, ActionExportData,
		ActionManageSettings, ActionManageRelationships, ActionReadAnalytics,
		ActionGrantConsent:
		return true
	}
	return false
}

// IsDestructive reports whether a token for this action is single-redemption.
func (a Action) IsDestructive() bool {
	return a == ActionDeleteProfile || a == ActionDeleteConversations
}

func (a Action) String() string { return string(a) }

// permissionMatrix is the fixed access policy. It is a code-level constant:
// adding an action without updating the matrix makes the exhaustive matrix
// test fail rather than silently allowing or denying.
var permissionMatrix = map[AccessLevel]map[Action]bool{
	LevelFullGuardian: {
		ActionReadProfile:         true,
		ActionUpdateProfile:       true,
		ActionDeleteProfile:       true,
		ActionReadConversations:   true,
		ActionDeleteConversations: true,
		ActionExportData:          true,
		ActionManageSettings:      true,
		ActionManageRelationships: true,
		ActionReadAnalytics:       true,
		ActionGrantConsent:        true,
	},
	LevelSharedGuardian: {
		ActionReadProfile:         true,
		ActionUpdateProfile:       true,
		ActionDeleteProfile:       false,
		ActionReadConversations:   true,
		ActionDeleteConversations: true,
		ActionExportData:          true,
		ActionManageSettings:      true,
		ActionManageRelationships: true,
		ActionReadAnalytics:       true,
		ActionGrantConsent:        true,
	},
	LevelTemporaryGuardian: {
		ActionReadProfile:       true,
		ActionReadConversations: true,
		ActionReadAnalytics:     true,
	},
	LevelReadOnly: {
		ActionReadProfile:       true,
		ActionReadConversations: true,
		ActionReadAnalytics:     true,
	},
	LevelEmergencyContact: {
		ActionReadProfile: true,
	},
}

// Permits reports whether the access level allows the action under the fixed
// permission matrix. Unknown levels or actions are never permitted.
func Permits(level AccessLevel, action Action) bool {
	return permissionMatrix[level][action]
}

// PermittedActions returns the actions the level allows, in declaration order.
func PermittedActions(level AccessLevel) []Action {
	allowed := permissionMatrix[level]
	var actions []Action
	for _, a := range Actions {
		if allowed[a] {
			actions = append(actions, a)
		}
	}
	return actions
}
