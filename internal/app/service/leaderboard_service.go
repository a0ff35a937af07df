package service

import (
	"context"
	"database/sql"
	"log"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"
)

// LeaderboardService recomputes cohort standings as a full resort after every
// scored submission. Recomputes for the same cohort are serialized; a stale
// concurrent recompute can only be overwritten by a fresher one.
type LeaderboardService struct {
	enrollmentRepo repository.EnrollmentRepository
	db             *sql.DB
	locks          *common.KeyedMutex
}

func NewLeaderboardService(enrollmentRepo repository.EnrollmentRepository, db *sql.DB) *LeaderboardService {
	return &LeaderboardService{
		enrollmentRepo: enrollmentRepo,
		db:             db,
		locks:          common.NewKeyedMutex(),
	}
}

type LeaderboardEntry struct {
	Rank             int                    `json:"rank"`
	Username         string                 `json:"username"`
	TotalScore       int                    `json:"total_score"`
	CompletedModules int                    `json:"completed_modules"`
	Status           model.EnrollmentStatus `json:"status"`
}

// Recompute resorts the whole cohort by total score (ties broken by
// enrollment age, earlier first) and persists any rank that moved.
func (s *LeaderboardService) Recompute(ctx context.Context, cohortID string) error {
	unlock := s.locks.Lock(cohortID)
	defer unlock()

	enrollments, err := s.enrollmentRepo.ListByCohort(ctx, cohortID)
	if err != nil {
		return common.Errorf("failed to list enrollments: %w", err)
	}

	updates := assignRanks(enrollments)
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range updates {
		if err := s.enrollmentRepo.UpdateRank(ctx, tx, u.EnrollmentID, u.Rank); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: leaderboard recomputed for cohort %s (%d ranks moved)", cohortID, len(updates))
	return nil
}

// GetLeaderboard returns the cohort standings in rank order.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, cohortID string) ([]LeaderboardEntry, error) {
	enrollments, err := s.enrollmentRepo.ListByCohort(ctx, cohortID)
	if err != nil {
		return nil, common.Errorf("failed to list enrollments: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(enrollments))
	for i, e := range enrollments {
		username := ""
		if e.UserUsername != nil {
			username = *e.UserUsername
		}
		entries = append(entries, LeaderboardEntry{
			Rank:             i + 1,
			Username:         username,
			TotalScore:       e.TotalScore,
			CompletedModules: e.CompletedModules,
			Status:           e.Status,
		})
	}
	return entries, nil
}

type rankUpdate struct {
	EnrollmentID string
	Rank         int
}

// assignRanks maps already-sorted enrollments to positional ranks and
// returns only the ones whose stored rank differs.
func assignRanks(enrollments []model.Enrollment) []rankUpdate {
	var updates []rankUpdate
	for i, e := range enrollments {
		rank := i + 1
		if e.Rank == nil || *e.Rank != rank {
			updates = append(updates, rankUpdate{EnrollmentID: e.ID, Rank: rank})
		}
	}
	return updates
}
