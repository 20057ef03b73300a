package app

import "strings"

// Well-known settings keys. Seed and reset both work from this set.
const (
	SettingIsLoggedIn           = "isLoggedIn"
	SettingCurrentUserID        = "currentUserId"
	SettingHasSetup             = "hasSetup"
	SettingAppInitialized       = "appInitialized"
	SettingNotificationsEnabled = "notificationsEnabled"

	// DashboardGadgetsPrefix prefixes the per-user dashboard layout key.
	DashboardGadgetsPrefix = "dashboard_gadgets_"
)

// ResetSettingKeys lists the fixed keys cleared by Reset. Dashboard keys are
// matched by DashboardGadgetsPrefix.
var ResetSettingKeys = []string{
	SettingIsLoggedIn,
	SettingCurrentUserID,
	SettingHasSetup,
	SettingAppInitialized,
	SettingNotificationsEnabled,
}

// DashboardGadgetsKey returns the settings key holding userID's dashboard.
func DashboardGadgetsKey(userID string) string {
	return DashboardGadgetsPrefix + strings.TrimSpace(userID)
}

func settingBool(value string, ok bool, fallback bool) bool {
	if !ok {
		return fallback
	}
	return value == "true"
}

func boolSetting(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
