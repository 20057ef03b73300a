package domain

// Dataset is the full content of every entity table.
type Dataset struct {
	Projects        []Project        `json:"projects"`
	Issues          []Issue          `json:"issues"`
	Sprints         []Sprint         `json:"sprints"`
	Versions        []Version        `json:"versions"`
	Notifications   []Notification   `json:"notifications"`
	AutomationRules []AutomationRule `json:"automationRules"`
	AutomationLogs  []AutomationLog  `json:"automationLogs"`
	SavedFilters    []SavedFilter    `json:"savedFilters"`
	ViewHistory     []ViewHistory    `json:"viewHistory"`
}

// Counts reports the row count per table name.
func (d Dataset) Counts() map[string]int {
	return map[string]int{
		"projects":        len(d.Projects),
		"issues":          len(d.Issues),
		"sprints":         len(d.Sprints),
		"versions":        len(d.Versions),
		"notifications":   len(d.Notifications),
		"automationRules": len(d.AutomationRules),
		"automationLogs":  len(d.AutomationLogs),
		"savedFilters":    len(d.SavedFilters),
		"viewHistory":     len(d.ViewHistory),
	}
}
