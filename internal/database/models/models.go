package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProblemStatus int

const (
	StatusUntouched ProblemStatus = 0
	StatusAttempted ProblemStatus = 1
	StatusSolved    ProblemStatus = 2
)

// Scores is an ordinal-aligned score vector stored as a JSON column.
type Scores = datatypes.JSONSlice[float64]

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex" json:"username"`
	PasswordHash string `json:"-"`
	Nickname     string `json:"nickname"`
}

// Settings holds the per-platform handles used by score sync.
type Settings struct {
	UserID            string                                `gorm:"primaryKey" json:"userId"`
	PlatformUsernames datatypes.JSONType[map[string]string] `json:"platformUsernames"`
	UpdatedAt         time.Time                             `json:"updatedAt"`
}

type Problem struct {
	ID     uint          `gorm:"primaryKey" json:"id"`
	Name   string        `json:"name"`
	Source string        `gorm:"uniqueIndex:idx_problem_key" json:"source"`
	Year   int           `gorm:"uniqueIndex:idx_problem_key" json:"year"`
	Number int           `gorm:"uniqueIndex:idx_problem_key" json:"number"`
	Extra  string        `gorm:"uniqueIndex:idx_problem_key" json:"extra"`
	Links  []ProblemLink `gorm:"foreignKey:ProblemID;constraint:OnDelete:CASCADE" json:"problemLinks"`
}

type ProblemLink struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProblemID uint   `gorm:"index" json:"problemId"`
	Platform  string `json:"platform"`
	URL       string `json:"url"`
}

type Contest struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex:idx_contest_name_stage" json:"name"`
	Stage    string `gorm:"uniqueIndex:idx_contest_name_stage" json:"stage"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	Source   string `json:"source"`
	Year     int    `json:"year"`
	Duration int    `json:"duration"` // minutes
	Date     string `json:"date,omitempty"`
	Website  string `json:"website,omitempty"`

	Problems []ContestProblem `gorm:"foreignKey:ContestID" json:"problems,omitempty"`
	Scores   *ContestScores   `gorm:"foreignKey:ContestID" json:"scores,omitempty"`
}

func (c *Contest) Length() time.Duration {
	return time.Duration(c.Duration) * time.Minute
}

type ContestProblem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	ContestID    uint    `gorm:"uniqueIndex:idx_contest_problem_index" json:"contestId"`
	ProblemIndex int     `gorm:"uniqueIndex:idx_contest_problem_index" json:"problemIndex"`
	ProblemID    uint    `gorm:"index" json:"problemId"`
	Problem      Problem `json:"problem"`
}

// ContestScores is the reference population of a contest. Every array in
// ProblemScores is keyed by problemIndex+1 and position k in each array is
// the same participant.
type ContestScores struct {
	ID            uint                                     `gorm:"primaryKey" json:"id"`
	ContestID     uint                                     `gorm:"uniqueIndex" json:"contestId"`
	ProblemScores datatypes.JSONType[map[string][]float64] `json:"problemScores"`
	MedalCutoffs  Scores                                   `json:"medalCutoffs"`
	MedalNames    datatypes.JSONSlice[string]              `json:"medalNames"`
	Private       bool                                     `json:"private"`
}

type ActiveVirtualContest struct {
	UserID           string     `gorm:"primaryKey" json:"userId"`
	ContestID        uint       `gorm:"index" json:"contestId"`
	Contest          Contest    `json:"contest"`
	StartedAt        time.Time  `json:"startedAt"`
	EndedAt          *time.Time `json:"endedAt"`
	Autosynced       bool       `json:"autosynced"`
	Score            *float64   `json:"score"`
	PerProblemScores *Scores    `json:"perProblemScores"`

	Submissions []VirtualSubmission `gorm:"foreignKey:ActiveVirtualContestUserID;references:UserID" json:"-"`
}

type UserVirtualContest struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"uniqueIndex:idx_user_contest" json:"userId"`
	ContestID        uint      `gorm:"uniqueIndex:idx_user_contest" json:"contestId"`
	Contest          Contest   `json:"contest"`
	StartedAt        time.Time `json:"startedAt"`
	EndedAt          time.Time `json:"endedAt"`
	Score            float64   `json:"score"`
	PerProblemScores Scores    `json:"perProblemScores"`

	UserContextData *datatypes.JSONType[map[string]string] `json:"userContextData"`

	Submissions []VirtualSubmission `gorm:"foreignKey:VirtualContestID" json:"submissions,omitempty"`
}

// VirtualSubmission belongs to exactly one of an active attempt or a
// finalized one.
type VirtualSubmission struct {
	ID                         uint      `gorm:"primaryKey" json:"id"`
	ActiveVirtualContestUserID *string   `gorm:"index" json:"activeVirtualContestUserId"`
	VirtualContestID           *uint     `gorm:"index" json:"virtualContestId"`
	ContestProblemID           uint      `gorm:"index" json:"contestProblemId"`
	Time                       time.Time `json:"time"`
	Score                      float64   `json:"score"`
	SubtaskScores              Scores    `json:"subtaskScores"`
}

type UserProblemData struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	UserID    string        `gorm:"uniqueIndex:idx_user_problem" json:"userId"`
	ProblemID uint          `gorm:"uniqueIndex:idx_user_problem" json:"problemId"`
	Score     float64       `json:"score"`
	Status    ProblemStatus `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PlatformCredential is the shared session store keyed by platform name.
type PlatformCredential struct {
	Platform  string `gorm:"primaryKey"`
	Value     string
	UpdatedAt time.Time
}
