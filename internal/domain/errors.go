package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidName          = errors.New("invalid name")
	ErrInvalidTitle         = errors.New("invalid title")
	ErrInvalidKey           = errors.New("invalid key")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidIssueType     = errors.New("invalid issue type")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidProjectType   = errors.New("invalid project type")
	ErrInvalidCategory      = errors.New("invalid project category")
	ErrInvalidSprintStatus  = errors.New("invalid sprint status")
	ErrInvalidVersionStatus = errors.New("invalid version status")
	ErrInvalidTrigger       = errors.New("invalid automation trigger")
	ErrInvalidAction        = errors.New("invalid automation action")
	ErrInvalidEvent         = errors.New("invalid notification event")
	ErrInvalidBody          = errors.New("invalid body")
	ErrInvalidLinkType      = errors.New("invalid link type")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)
