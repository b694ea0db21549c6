package catalog

import "time"

type Game struct {
	ID                int64  `gorm:"primaryKey"`
	Title             string `gorm:"not null"`
	Phase             string `gorm:"not null;default:'idle'"`
	Revealed          bool   `gorm:"not null;default:false"`
	CurrentRoundID    *int64
	CurrentQuestionID *int64
	Rounds            []Round `gorm:"foreignKey:GameID"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Round struct {
	ID     int64 `gorm:"primaryKey"`
	GameID int64 `gorm:"not null;index"`
	Number int   `gorm:"not null"`
}

type Team struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

type Question struct {
	ID       int64  `gorm:"primaryKey"`
	RoundID  int64  `gorm:"not null;index"`
	Order    int    `gorm:"column:sort_order;not null"`
	Text     string `gorm:"not null"`
	Answer   string `gorm:"not null"`
	MediaURL string
	Round    Round `gorm:"foreignKey:RoundID"`
}

// Score is the persisted cumulative points of one team in one game.
type Score struct {
	GameID int64 `gorm:"primaryKey;autoIncrement:false"`
	TeamID int64 `gorm:"primaryKey;autoIncrement:false"`
	Points int   `gorm:"not null"`
}

type Role string

const (
	RoleHost       Role = "host"
	RoleTeamMember Role = "team_member"
)

type User struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Role      Role   `gorm:"type:text;not null"`
	TeamID    *int64 `gorm:"index"`
	Team      *Team  `gorm:"foreignKey:TeamID"`
	CreatedAt time.Time
}

// AnswerSubmission is one team's answer to one question. Correct is decided
// when the answer is recorded.
type AnswerSubmission struct {
	ID          int64     `gorm:"primaryKey"`
	QuestionID  int64     `gorm:"not null;uniqueIndex:idx_submission_question_team"`
	TeamID      int64     `gorm:"not null;uniqueIndex:idx_submission_question_team"`
	Text        string    `gorm:"column:answer_text;not null"`
	Correct     bool      `gorm:"not null"`
	Question    Question  `gorm:"foreignKey:QuestionID"`
	Team        Team      `gorm:"foreignKey:TeamID"`
	SubmittedAt time.Time `gorm:"autoCreateTime"`
}
