package service

import (
	"testing"

	"cohortly/internal/domain/model"
)

func TestSanitizeOptionsZeroesCorrectness(t *testing.T) {
	options := []model.Option{
		{ID: "opt-1", QuestionID: "q1", Text: "four", IsCorrect: true, SortOrder: 0},
		{ID: "opt-2", QuestionID: "q1", Text: "five", IsCorrect: false, SortOrder: 1},
	}

	sanitized := sanitizeOptions(options)

	if len(sanitized) != len(options) {
		t.Fatalf("expected %d options, got %d", len(options), len(sanitized))
	}
	for i, opt := range sanitized {
		if opt.IsCorrect {
			t.Errorf("option %s still carries the correct flag", opt.ID)
		}
		if opt.ID != options[i].ID || opt.Text != options[i].Text {
			t.Errorf("sanitizing must not change id/text: %+v", opt)
		}
	}
	// The stored options stay intact for admin reads.
	if !options[0].IsCorrect {
		t.Error("sanitizing must not mutate the input slice")
	}
}

func TestVisibleTestCasesDropsHidden(t *testing.T) {
	testCases := []model.TestCase{
		{ID: "tc-1", Input: "1", ExpectedOutput: "1"},
		{ID: "tc-2", Input: "2", ExpectedOutput: "2", Hidden: true},
		{ID: "tc-3", Input: "3", ExpectedOutput: "3"},
	}

	visible := visibleTestCases(testCases)

	if len(visible) != 2 {
		t.Fatalf("expected 2 visible cases, got %d", len(visible))
	}
	for _, tc := range visible {
		if tc.Hidden {
			t.Errorf("hidden case %s leaked", tc.ID)
		}
	}
}
