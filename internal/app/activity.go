package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/issuedeck/internal/domain"
	"github.com/evanschultz/issuedeck/internal/stats"
)

// AddComment appends a comment to an issue, then runs comment_added
// automation and notifies the configured recipients other than the author.
func (s *Service) AddComment(ctx context.Context, issueID, authorID, body string) (domain.Comment, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return domain.Comment{}, err
	}
	project, err := s.repo.GetProject(ctx, issue.ProjectID)
	if err != nil {
		return domain.Comment{}, err
	}
	comment := domain.Comment{
		ID:        s.idGen(),
		AuthorID:  strings.TrimSpace(authorID),
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := issue.AddComment(comment); err != nil {
		return domain.Comment{}, err
	}
	comment = issue.Comments[len(issue.Comments)-1]
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.Comment{}, err
	}
	issue = s.RunAutomation(ctx, domain.TriggerCommentAdded, issue)
	s.notify(ctx, project, domain.EventCommentAdded, issue, comment.AuthorID)
	return comment, nil
}

// WorkLogInput holds input values for AddWorkLog.
type WorkLogInput struct {
	IssueID     string `validate:"required"`
	AuthorID    string `validate:"required"`
	Minutes     int    `validate:"gt=0,lte=14400"`
	Description string `validate:"max=2000"`
	StartedAt   time.Time
}

// AddWorkLog records time spent on an issue.
func (s *Service) AddWorkLog(ctx context.Context, in WorkLogInput) (domain.WorkLog, error) {
	if err := validateInput(in); err != nil {
		return domain.WorkLog{}, err
	}
	issue, err := s.repo.GetIssue(ctx, in.IssueID)
	if err != nil {
		return domain.WorkLog{}, err
	}
	now := s.now()
	started := in.StartedAt
	if started.IsZero() {
		started = now
	}
	entry := domain.WorkLog{
		ID:          s.idGen(),
		AuthorID:    in.AuthorID,
		TimeSpent:   in.Minutes,
		Description: in.Description,
		StartedAt:   started.UTC(),
		CreatedAt:   now,
	}
	if err := issue.AddWorkLog(entry); err != nil {
		return domain.WorkLog{}, err
	}
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.WorkLog{}, err
	}
	return issue.WorkLogs[len(issue.WorkLogs)-1], nil
}

// AddLink links issueID to targetID.
func (s *Service) AddLink(ctx context.Context, issueID, targetID string, linkType domain.LinkType) (domain.IssueLink, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return domain.IssueLink{}, err
	}
	if _, err := s.repo.GetIssue(ctx, targetID); err != nil {
		return domain.IssueLink{}, fmt.Errorf("link target %s: %w", targetID, err)
	}
	link := domain.IssueLink{ID: s.idGen(), Type: linkType, OutwardIssueID: targetID}
	if err := issue.AddLink(link, s.now()); err != nil {
		return domain.IssueLink{}, err
	}
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.IssueLink{}, err
	}
	return link, nil
}

// AddAttachment stores data on the issue as a base64 data URI. When mimeType
// is empty it is sniffed from the content.
func (s *Service) AddAttachment(ctx context.Context, issueID, uploaderID, name, mimeType string, data []byte) (domain.Attachment, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return domain.Attachment{}, err
	}
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	attachment := domain.Attachment{
		ID:         s.idGen(),
		Name:       strings.TrimSpace(name),
		MimeType:   mimeType,
		Size:       len(data),
		DataURI:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		UploaderID: strings.TrimSpace(uploaderID),
		CreatedAt:  s.now(),
	}
	if err := issue.AddAttachment(attachment); err != nil {
		return domain.Attachment{}, err
	}
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.Attachment{}, err
	}
	return attachment, nil
}

// DecodeAttachment returns the raw bytes held in an attachment's data URI.
func DecodeAttachment(a domain.Attachment) ([]byte, error) {
	_, payload, ok := strings.Cut(a.DataURI, ";base64,")
	if !ok {
		return nil, fmt.Errorf("%w: attachment %s is not a base64 data URI", ErrInvalidInput, a.ID)
	}
	return base64.StdEncoding.DecodeString(payload)
}

// AddWatcher adds userID to the issue's watchers.
func (s *Service) AddWatcher(ctx context.Context, issueID, userID string) (domain.Issue, error) {
	return s.updateWatchers(ctx, issueID, func(issue *domain.Issue) bool { return issue.AddWatcher(userID) })
}

// RemoveWatcher removes userID from the issue's watchers.
func (s *Service) RemoveWatcher(ctx context.Context, issueID, userID string) (domain.Issue, error) {
	return s.updateWatchers(ctx, issueID, func(issue *domain.Issue) bool { return issue.RemoveWatcher(userID) })
}

func (s *Service) updateWatchers(ctx context.Context, issueID string, mutate func(*domain.Issue) bool) (domain.Issue, error) {
	issue, err := s.repo.GetIssue(ctx, issueID)
	if err != nil {
		return domain.Issue{}, err
	}
	if !mutate(&issue) {
		return issue, nil
	}
	if err := s.repo.UpdateIssue(ctx, issue); err != nil {
		return domain.Issue{}, err
	}
	return issue, nil
}

// RecordView upserts the "{userId}-{issueId}" view row with the current time.
func (s *Service) RecordView(ctx context.Context, userID, issueID string) (domain.ViewHistory, error) {
	if _, err := s.repo.GetIssue(ctx, issueID); err != nil {
		return domain.ViewHistory{}, err
	}
	view, err := domain.NewViewHistory(userID, issueID, s.now())
	if err != nil {
		return domain.ViewHistory{}, err
	}
	if err := s.repo.UpsertViewHistory(ctx, view); err != nil {
		return domain.ViewHistory{}, err
	}
	return view, nil
}

// RecentIssues returns the issues userID viewed most recently, newest first.
func (s *Service) RecentIssues(ctx context.Context, userID string, limit int) ([]domain.Issue, error) {
	history, err := s.repo.ListViewHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	issues, err := s.repo.ListIssues(ctx, IssueFilter{})
	if err != nil {
		return nil, err
	}
	return stats.RecentIssues(history, issues, userID, limit), nil
}
