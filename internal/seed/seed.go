// Package seed builds the deterministic demo workspace from the embedded
// demo.yaml fixture.
package seed

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanschultz/issuedeck/internal/domain"
)

//go:embed demo.yaml
var demoYAML []byte

// fixture mirrors demo.yaml.
type fixture struct {
	Users         []domain.User         `yaml:"users"`
	Project       projectFixture        `yaml:"project"`
	Sprints       []sprintFixture       `yaml:"sprints"`
	Issues        []issueFixture        `yaml:"issues"`
	Notifications []notificationFixture `yaml:"notifications"`
}

type projectFixture struct {
	ID             string         `yaml:"id"`
	Key            string         `yaml:"key"`
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description"`
	LeadID         string         `yaml:"leadId"`
	Category       string         `yaml:"category"`
	Type           string         `yaml:"type"`
	ColumnSettings map[string]int `yaml:"columnSettings"`
}

type sprintFixture struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	Status          string `yaml:"status"`
	Goal            string `yaml:"goal"`
	StartOffsetDays *int   `yaml:"startOffsetDays"`
	EndOffsetDays   *int   `yaml:"endOffsetDays"`
}

type issueFixture struct {
	ID                string   `yaml:"id"`
	Number            int      `yaml:"number"`
	Title             string   `yaml:"title"`
	Type              string   `yaml:"type"`
	Status            string   `yaml:"status"`
	Priority          string   `yaml:"priority"`
	ReporterID        string   `yaml:"reporterId"`
	AssigneeID        string   `yaml:"assigneeId"`
	SprintID          string   `yaml:"sprintId"`
	ParentID          string   `yaml:"parentId"`
	StoryPoints       *int     `yaml:"storyPoints"`
	Labels            []string `yaml:"labels"`
	Description       string   `yaml:"description"`
	CreatedOffsetDays int      `yaml:"createdOffsetDays"`
	DueOffsetDays     *int     `yaml:"dueOffsetDays"`
}

type notificationFixture struct {
	ID                 string `yaml:"id"`
	RecipientID        string `yaml:"recipientId"`
	Title              string `yaml:"title"`
	Description        string `yaml:"description"`
	Type               string `yaml:"type"`
	IssueID            string `yaml:"issueId"`
	CreatedOffsetHours int    `yaml:"createdOffsetHours"`
}

var loadFixture = sync.OnceValues(func() (fixture, error) {
	var f fixture
	if err := yaml.Unmarshal(demoYAML, &f); err != nil {
		return fixture{}, fmt.Errorf("decode demo fixture: %w", err)
	}
	return f, nil
})

// Users returns the demo user directory.
func Users() ([]domain.User, error) {
	f, err := loadFixture()
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(f.Users))
	copy(out, f.Users)
	return out, nil
}

// Demo builds the demo dataset with timestamps offset from now. The same now
// always yields the same dataset.
func Demo(now time.Time) (domain.Dataset, error) {
	f, err := loadFixture()
	if err != nil {
		return domain.Dataset{}, err
	}
	now = now.UTC().Truncate(time.Second)
	days := func(n int) time.Time { return now.AddDate(0, 0, n) }

	project, err := domain.NewProject(domain.ProjectInput{
		ID:          f.Project.ID,
		Key:         f.Project.Key,
		Name:        f.Project.Name,
		Description: f.Project.Description,
		LeadID:      f.Project.LeadID,
		Category:    domain.ProjectCategory(f.Project.Category),
		Type:        domain.ProjectType(f.Project.Type),
	}, days(-30))
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("demo project: %w", err)
	}
	if len(f.Project.ColumnSettings) > 0 {
		project.ColumnSettings = make(map[domain.IssueStatus]int, len(f.Project.ColumnSettings))
		for status, limit := range f.Project.ColumnSettings {
			project.ColumnSettings[domain.IssueStatus(status)] = limit
		}
	}

	ds := domain.Dataset{
		Projects:        []domain.Project{},
		Sprints:         make([]domain.Sprint, 0, len(f.Sprints)),
		Issues:          make([]domain.Issue, 0, len(f.Issues)),
		Versions:        []domain.Version{},
		Notifications:   make([]domain.Notification, 0, len(f.Notifications)),
		AutomationRules: []domain.AutomationRule{},
		AutomationLogs:  []domain.AutomationLog{},
		SavedFilters:    []domain.SavedFilter{},
		ViewHistory:     []domain.ViewHistory{},
	}

	for _, sf := range f.Sprints {
		sprint, err := domain.NewSprint(sf.ID, project.ID, sf.Name, domain.SprintStatus(sf.Status))
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("demo sprint %s: %w", sf.ID, err)
		}
		sprint.Goal = sf.Goal
		if sf.StartOffsetDays != nil {
			ts := days(*sf.StartOffsetDays)
			sprint.StartDate = &ts
		}
		if sf.EndOffsetDays != nil {
			ts := days(*sf.EndOffsetDays)
			sprint.EndDate = &ts
		}
		ds.Sprints = append(ds.Sprints, sprint)
	}

	for _, fi := range f.Issues {
		var due *time.Time
		if fi.DueOffsetDays != nil {
			ts := days(*fi.DueOffsetDays)
			due = &ts
		}
		issue, err := domain.NewIssue(domain.IssueInput{
			ID:          fi.ID,
			Key:         project.IssueKey(fi.Number),
			ProjectID:   project.ID,
			Title:       fi.Title,
			Type:        domain.IssueType(fi.Type),
			Status:      domain.IssueStatus(fi.Status),
			Priority:    domain.Priority(fi.Priority),
			AssigneeID:  fi.AssigneeID,
			ReporterID:  fi.ReporterID,
			SprintID:    fi.SprintID,
			Description: fi.Description,
			DueDate:     due,
			StoryPoints: fi.StoryPoints,
			Labels:      fi.Labels,
			ParentID:    fi.ParentID,
			HistoryID:   fi.ID + "-h0",
		}, days(fi.CreatedOffsetDays))
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("demo issue %s: %w", fi.ID, err)
		}
		project.IssueCounter = max(project.IssueCounter, fi.Number)
		ds.Issues = append(ds.Issues, issue)
	}
	ds.Projects = append(ds.Projects, project)

	for _, fn := range f.Notifications {
		ds.Notifications = append(ds.Notifications, domain.Notification{
			ID:          fn.ID,
			RecipientID: fn.RecipientID,
			Title:       fn.Title,
			Description: fn.Description,
			Type:        domain.NotificationType(fn.Type),
			IssueID:     fn.IssueID,
			CreatedAt:   now.Add(time.Duration(fn.CreatedOffsetHours) * time.Hour),
		})
	}
	return ds, nil
}
