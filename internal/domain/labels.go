package domain

// Display dictionaries for the Japanese UI.
var (
	IssueTypeLabels = map[IssueType]string{
		IssueTypeStory: "ストーリー",
		IssueTypeBug:   "バグ",
		IssueTypeTask:  "タスク",
		IssueTypeEpic:  "エピック",
	}
	StatusLabels = map[IssueStatus]string{
		StatusToDo:       "未着手",
		StatusInProgress: "進行中",
		StatusInReview:   "レビュー中",
		StatusDone:       "完了",
	}
	PriorityLabels = map[Priority]string{
		PriorityHighest: "最高",
		PriorityHigh:    "高",
		PriorityMedium:  "中",
		PriorityLow:     "低",
		PriorityLowest:  "最低",
	}
	SprintStatusLabels = map[SprintStatus]string{
		SprintActive:    "進行中",
		SprintFuture:    "予定",
		SprintCompleted: "完了",
	}
	VersionStatusLabels = map[VersionStatus]string{
		VersionReleased:   "リリース済み",
		VersionUnreleased: "未リリース",
		VersionArchived:   "アーカイブ済み",
	}
)

// StatusLabel returns the display label for s, falling back to the raw value.
func StatusLabel(s IssueStatus) string {
	if label, ok := StatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// PriorityRank orders priorities with Highest first; unknown values sort last.
func PriorityRank(p Priority) int {
	for idx, candidate := range validPriorities {
		if candidate == p {
			return idx
		}
	}
	return len(validPriorities)
}
