package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/trivia-hub/internal/engine"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&Game{}, &Round{}, &Team{}, &Question{}, &Score{}, &User{}, &AnswerSubmission{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func (p *Postgres) CreateGame(ctx context.Context, title string) (Game, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Game{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	g := Game{Title: title, Phase: string(engine.PhaseIdle)}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		g.Rounds = make([]Round, 0, RoundsPerGame)
		for n := 1; n <= RoundsPerGame; n++ {
			g.Rounds = append(g.Rounds, Round{GameID: g.ID, Number: n})
		}
		if err := tx.Create(&g.Rounds).Error; err != nil {
			return err
		}
		g.CurrentRoundID = &g.Rounds[0].ID
		return tx.Model(&g).Update("current_round_id", g.Rounds[0].ID).Error
	})
	if err != nil {
		return Game{}, mapErr(err)
	}
	return g, nil
}

func (p *Postgres) Game(ctx context.Context, id int64) (Game, error) {
	var g Game
	err := p.db.WithContext(ctx).
		Preload("Rounds", func(db *gorm.DB) *gorm.DB { return db.Order("number") }).
		First(&g, id).Error
	return g, mapErr(err)
}

func (p *Postgres) ListGames(ctx context.Context) ([]Game, error) {
	var games []Game
	err := p.db.WithContext(ctx).Order("id").Find(&games).Error
	return games, mapErr(err)
}

func (p *Postgres) CreateTeam(ctx context.Context, name string) (Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Team{}, fmt.Errorf("%w: team name is required", ErrInvalid)
	}
	t := Team{Name: name}
	if err := p.db.WithContext(ctx).Create(&t).Error; err != nil {
		return Team{}, mapErr(err)
	}
	return t, nil
}

func (p *Postgres) Team(ctx context.Context, id int64) (Team, error) {
	var t Team
	err := p.db.WithContext(ctx).First(&t, id).Error
	return t, mapErr(err)
}

func (p *Postgres) ListTeams(ctx context.Context) ([]Team, error) {
	var teams []Team
	err := p.db.WithContext(ctx).Order("id").Find(&teams).Error
	return teams, mapErr(err)
}

func (p *Postgres) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if err := validateQuestion(q); err != nil {
		return Question{}, err
	}
	q.ID = 0
	q.Round = Round{}
	if err := p.db.WithContext(ctx).Omit(clause.Associations).Create(&q).Error; err != nil {
		return Question{}, mapErr(err)
	}
	return p.Question(ctx, q.ID)
}

func (p *Postgres) UpdateQuestion(ctx context.Context, id int64, in Question) (Question, error) {
	if err := validateQuestion(in); err != nil {
		return Question{}, err
	}
	res := p.db.WithContext(ctx).Model(&Question{ID: id}).Updates(map[string]any{
		"sort_order": in.Order,
		"text":       in.Text,
		"answer":     in.Answer,
		"media_url":  in.MediaURL,
	})
	if res.Error != nil {
		return Question{}, mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return Question{}, ErrNotFound
	}
	return p.Question(ctx, id)
}

func (p *Postgres) Question(ctx context.Context, id int64) (Question, error) {
	var q Question
	err := p.db.WithContext(ctx).Preload("Round").First(&q, id).Error
	return q, mapErr(err)
}

func (p *Postgres) ListRoundQuestions(ctx context.Context, roundID int64) ([]Question, error) {
	if err := p.db.WithContext(ctx).First(&Round{}, roundID).Error; err != nil {
		return nil, mapErr(err)
	}
	var qs []Question
	err := p.db.WithContext(ctx).Preload("Round").
		Where("round_id = ?", roundID).Order("sort_order, id").Find(&qs).Error
	return qs, mapErr(err)
}

func (p *Postgres) ListGameQuestions(ctx context.Context, gameID int64) ([]Question, error) {
	if err := p.db.WithContext(ctx).First(&Game{}, gameID).Error; err != nil {
		return nil, mapErr(err)
	}
	var qs []Question
	err := p.db.WithContext(ctx).Preload("Round").
		Joins("JOIN rounds ON rounds.id = questions.round_id").
		Where("rounds.game_id = ?", gameID).
		Order("rounds.number, questions.sort_order, questions.id").
		Find(&qs).Error
	return qs, mapErr(err)
}

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if err := validateUser(u); err != nil {
		return User{}, err
	}
	u.ID = 0
	u.Team = nil
	if err := p.db.WithContext(ctx).Omit(clause.Associations).Create(&u).Error; err != nil {
		return User{}, mapErr(err)
	}
	return u, nil
}

func (p *Postgres) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := p.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, mapErr(err)
}

func (p *Postgres) SubmitAnswer(ctx context.Context, questionID, teamID int64, text string) (AnswerSubmission, error) {
	if err := validateAnswer(text); err != nil {
		return AnswerSubmission{}, err
	}
	a := AnswerSubmission{QuestionID: questionID, TeamID: teamID, Text: text}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q Question
		if err := tx.Select("id", "answer").First(&q, questionID).Error; err != nil {
			return err
		}
		a.Correct = IsCorrect(q.Answer, text)
		return tx.Omit(clause.Associations).Create(&a).Error
	})
	if err != nil {
		return AnswerSubmission{}, mapErr(err)
	}
	return a, nil
}

func (p *Postgres) ListAnswers(ctx context.Context, questionID int64) ([]AnswerSubmission, error) {
	if err := p.db.WithContext(ctx).Select("id").First(&Question{}, questionID).Error; err != nil {
		return nil, mapErr(err)
	}
	var out []AnswerSubmission
	err := p.db.WithContext(ctx).Where("question_id = ?", questionID).Order("id").Find(&out).Error
	return out, mapErr(err)
}

func (p *Postgres) Scores(ctx context.Context, gameID int64) (map[int64]int, error) {
	var rows []Score
	if err := p.db.WithContext(ctx).Where("game_id = ?", gameID).Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make(map[int64]int, len(rows))
	for _, r := range rows {
		out[r.TeamID] = r.Points
	}
	return out, nil
}

// SaveSession persists the phase, current question and points of st.
func (p *Postgres) SaveSession(ctx context.Context, st engine.State) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current *int64
		if st.Current != nil {
			id := st.Current.ID
			current = &id
		}
		var round *int64
		if st.RoundID != 0 {
			id := st.RoundID
			round = &id
		}
		res := tx.Model(&Game{ID: st.GameID}).Updates(map[string]any{
			"phase":               string(st.Phase),
			"revealed":            st.Revealed,
			"current_round_id":    round,
			"current_question_id": current,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if len(st.Points) == 0 {
			return nil
		}
		rows := make([]Score, 0, len(st.Points))
		for teamID, pts := range st.Points {
			rows = append(rows, Score{GameID: st.GameID, TeamID: teamID, Points: pts})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "game_id"}, {Name: "team_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"points"}),
		}).Create(&rows).Error
	})
	return mapErr(err)
}
