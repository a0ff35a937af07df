package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"
	"cohortly/internal/platform/config"
	"cohortly/internal/platform/database"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Fixture files describe a cohort catalog authored outside the service. Slugs
// are derived from titles at load time.
type fixtureFile struct {
	Users   []fixtureUser   `json:"users"`
	Cohorts []fixtureCohort `json:"cohorts"`
}

type fixtureUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type fixtureCohort struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	IsActive    bool            `json:"is_active"`
	Modules     []fixtureModule `json:"modules"`
}

type fixtureModule struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []fixtureQuestion `json:"questions"`
}

type fixtureQuestion struct {
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Type          model.QuestionType `json:"type"`
	Marks         int                `json:"marks"`
	TimeLimitMs   int                `json:"time_limit_ms"`
	MemoryLimitKb int                `json:"memory_limit_kb"`
	Options       []fixtureOption    `json:"options"`
	TestCases     []fixtureTestCase  `json:"test_cases"`
}

type fixtureOption struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

type fixtureTestCase struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Hidden         bool    `json:"hidden"`
	Explanation    *string `json:"explanation,omitempty"`
}

func main() {
	path := flag.String("file", "fixtures.json", "path to the fixture file")
	flag.Parse()

	config.Load()
	database.Connect()
	defer database.Close()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("Failed to read fixture file: %v", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		log.Fatalf("Failed to parse fixture file: %v", err)
	}

	ctx := context.Background()
	userRepo := repository.NewPgUserRepository(database.DB)
	cohortRepo := repository.NewPgCohortRepository(database.DB)
	questionRepo := repository.NewPgQuestionRepository(database.DB)

	tx, err := database.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, fu := range fixtures.Users {
		role := fu.Role
		if role == "" {
			role = model.RoleUser
		}
		user := &model.User{ID: uuid.NewString(), Username: fu.Username, Email: fu.Email, Role: role}
		if err := userRepo.CreateUser(ctx, tx, user); err != nil {
			log.Fatalf("Failed to create user %s: %v", fu.Username, err)
		}
	}

	for _, fc := range fixtures.Cohorts {
		cohort := &model.Cohort{
			ID:          uuid.NewString(),
			Title:       fc.Title,
			Slug:        slug.Make(fc.Title),
			Description: fc.Description,
			StartDate:   fc.StartDate,
			EndDate:     fc.EndDate,
			IsActive:    fc.IsActive,
		}
		if err := cohortRepo.CreateCohort(ctx, tx, cohort); err != nil {
			log.Fatalf("Failed to create cohort %s: %v", fc.Title, err)
		}

		for i, fm := range fc.Modules {
			module := &model.Module{
				ID:          uuid.NewString(),
				CohortID:    cohort.ID,
				Title:       fm.Title,
				Description: fm.Description,
				SortOrder:   i,
			}
			if err := cohortRepo.CreateModule(ctx, tx, module); err != nil {
				log.Fatalf("Failed to create module %s: %v", fm.Title, err)
			}

			for _, fq := range fm.Questions {
				if err := seedQuestion(ctx, questionRepo, tx, module.ID, fq); err != nil {
					log.Fatalf("Failed to create question %s: %v", fq.Title, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit fixtures: %v", err)
	}
	log.Printf("Seeded %d users and %d cohorts from %s", len(fixtures.Users), len(fixtures.Cohorts), *path)
}

func seedQuestion(ctx context.Context, repo repository.QuestionRepository, tx *sql.Tx, moduleID string, fq fixtureQuestion) error {
	timeLimit := fq.TimeLimitMs
	if timeLimit <= 0 {
		timeLimit = config.AppConfig.DefaultTimeLimitMs
	}
	memoryLimit := fq.MemoryLimitKb
	if memoryLimit <= 0 {
		memoryLimit = config.AppConfig.DefaultMemoryLimitKb
	}

	question := &model.Question{
		ID:            uuid.NewString(),
		ModuleID:      moduleID,
		Title:         fq.Title,
		Slug:          slug.Make(fq.Title),
		Description:   fq.Description,
		Type:          fq.Type,
		Marks:         fq.Marks,
		TimeLimitMs:   timeLimit,
		MemoryLimitKb: memoryLimit,
	}
	if err := repo.CreateQuestion(ctx, tx, question); err != nil {
		return err
	}

	var options []model.Option
	for i, fo := range fq.Options {
		options = append(options, model.Option{
			ID:        uuid.NewString(),
			Text:      fo.Text,
			IsCorrect: fo.IsCorrect,
			SortOrder: i,
		})
	}
	if len(options) > 0 {
		if err := repo.AddOptions(ctx, tx, question.ID, options); err != nil {
			return err
		}
	}

	var testCases []model.TestCase
	for i, ft := range fq.TestCases {
		testCases = append(testCases, model.TestCase{
			ID:             uuid.NewString(),
			Input:          ft.Input,
			ExpectedOutput: ft.ExpectedOutput,
			Hidden:         ft.Hidden,
			Explanation:    ft.Explanation,
			SortOrder:      i,
		})
	}
	if len(testCases) > 0 {
		if err := repo.AddTestCases(ctx, tx, question.ID, testCases); err != nil {
			return err
		}
	}
	return nil
}
