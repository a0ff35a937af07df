package service

import (
	"errors"
	"testing"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/judge"
)

func TestEvaluateMCQ(t *testing.T) {
	options := []model.Option{
		{ID: "opt-1", Text: "wrong"},
		{ID: "opt-2", Text: "right", IsCorrect: true},
	}

	correct, err := evaluateMCQ(options, "opt-2")
	if err != nil || !correct {
		t.Errorf("expected correct, got correct=%v err=%v", correct, err)
	}

	correct, err = evaluateMCQ(options, "opt-1")
	if err != nil || correct {
		t.Errorf("expected incorrect, got correct=%v err=%v", correct, err)
	}

	_, err = evaluateMCQ(options, "opt-999")
	if !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("foreign option should be a bad request, got %v", err)
	}
}

func strPtr(s string) *string { return &s }

func passResult(id string, timeMs float64, memKb int) SubmittedTestCaseResult {
	return SubmittedTestCaseResult{TestCaseID: id, Passed: true, StatusID: judge.StatusIDAccepted, ExecutionTimeMs: timeMs, MemoryKb: memKb}
}

func failResult(id string, statusID int, errText string) SubmittedTestCaseResult {
	return SubmittedTestCaseResult{TestCaseID: id, Passed: false, StatusID: statusID, Error: errText}
}

func TestRecordProgrammingSubmissionRequiresResults(t *testing.T) {
	question := &model.Question{ID: "q1", Type: model.QuestionTypeProgramming, Marks: 25}

	tests := []struct {
		name string
		req  SubmitAnswerRequest
	}{
		{"missing code", SubmitAnswerRequest{Language: strPtr("python"), TestCaseResults: []SubmittedTestCaseResult{passResult("tc-1", 1, 1)}}},
		{"blank code", SubmitAnswerRequest{Code: strPtr("   "), Language: strPtr("python"), TestCaseResults: []SubmittedTestCaseResult{passResult("tc-1", 1, 1)}}},
		{"missing language", SubmitAnswerRequest{Code: strPtr("x"), TestCaseResults: []SubmittedTestCaseResult{passResult("tc-1", 1, 1)}}},
		{"missing test case results", SubmitAnswerRequest{Code: strPtr("x"), Language: strPtr("python"), IsCorrect: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &model.Submission{ID: "sub-1"}
			err := recordProgrammingSubmission(sub, question, tt.req)
			if !errors.Is(err, common.ErrBadRequest) {
				t.Errorf("expected bad request, got %v", err)
			}
		})
	}
}

func TestRecordProgrammingSubmissionPersistsReportedResults(t *testing.T) {
	question := &model.Question{ID: "q1", Marks: 25}
	sub := &model.Submission{ID: "sub-1"}

	err := recordProgrammingSubmission(sub, question, SubmitAnswerRequest{
		Code:      strPtr("print(1)"),
		Language:  strPtr("python"),
		IsCorrect: true,
		TestCaseResults: []SubmittedTestCaseResult{
			passResult("tc-1", 10, 2000),
			passResult("tc-2", 35, 1500),
		},
	})
	if err != nil {
		t.Fatalf("recordProgrammingSubmission: %v", err)
	}

	if !sub.IsCorrect || sub.Status != model.StatusAccepted {
		t.Fatalf("expected accepted, got correct=%v status=%s", sub.IsCorrect, sub.Status)
	}
	if sub.Score != 25 {
		t.Errorf("full marks expected, got %d", sub.Score)
	}
	if sub.ExecutionTimeMs != 35 || sub.MemoryKb != 2000 {
		t.Errorf("expected max time/memory, got %v/%d", sub.ExecutionTimeMs, sub.MemoryKb)
	}
	if len(sub.TestCaseResults) != 2 {
		t.Fatalf("expected 2 results, got %d", len(sub.TestCaseResults))
	}
	for _, r := range sub.TestCaseResults {
		if r.SubmissionID != "sub-1" || r.ID == "" {
			t.Errorf("result not linked to submission: %+v", r)
		}
	}
	if sub.TestCaseResults[0].TestCaseID != "tc-1" || sub.TestCaseResults[1].TestCaseID != "tc-2" {
		t.Errorf("results must keep the reported order: %+v", sub.TestCaseResults)
	}
}

func TestRecordProgrammingSubmissionIncorrectScoresZero(t *testing.T) {
	question := &model.Question{ID: "q1", Marks: 25}
	sub := &model.Submission{ID: "sub-1"}

	err := recordProgrammingSubmission(sub, question, SubmitAnswerRequest{
		Code:     strPtr("print(1)"),
		Language: strPtr("python"),
		TestCaseResults: []SubmittedTestCaseResult{
			passResult("tc-1", 10, 2000),
			failResult("tc-2", judge.StatusIDAccepted, "Output mismatch.\n..."),
		},
	})
	if err != nil {
		t.Fatalf("recordProgrammingSubmission: %v", err)
	}

	if sub.IsCorrect {
		t.Error("incorrect submission must not be correct")
	}
	if sub.Score != 0 {
		t.Errorf("incorrect submission scores zero, got %d", sub.Score)
	}
	if sub.Status != model.StatusWrongAnswer {
		t.Errorf("status = %s", sub.Status)
	}
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []SubmittedTestCaseResult
		want    model.SubmissionStatus
	}{
		{"all passed", []SubmittedTestCaseResult{passResult("a", 1, 1)}, model.StatusAccepted},
		{"no results", nil, model.StatusRuntimeError},
		{"mismatch by status", []SubmittedTestCaseResult{failResult("a", judge.StatusIDAccepted, "Output mismatch.\nexpected")}, model.StatusWrongAnswer},
		{"compile by status", []SubmittedTestCaseResult{failResult("a", judge.StatusIDCompilationError, "Compilation Error\nDetails")}, model.StatusCompilationError},
		{"time limit by status", []SubmittedTestCaseResult{failResult("a", judge.StatusIDTimeLimit, "Time Limit Exceeded")}, model.StatusTimeLimitExceeded},
		{"runtime by status", []SubmittedTestCaseResult{failResult("a", judge.StatusIDRuntimeError, "Runtime Error\nsegfault")}, model.StatusRuntimeError},
		{"internal error by status", []SubmittedTestCaseResult{failResult("a", judge.StatusIDInternalError, "Internal Error\nDetails (stderr): dial tcp")}, model.StatusRuntimeError},
		{"compile by text", []SubmittedTestCaseResult{failResult("a", 0, "Compilation Error\nDetails")}, model.StatusCompilationError},
		{"batch timeout by text", []SubmittedTestCaseResult{failResult("a", 0, "Execution timed out before the judge reported a result.")}, model.StatusTimeLimitExceeded},
		{"mismatch by text", []SubmittedTestCaseResult{failResult("a", 0, "Output mismatch.\nexpected")}, model.StatusWrongAnswer},
		// The payload mentions a time limit but the judge ran the case to
		// completion; the status id must win over the error text.
		{"misleading payload text", []SubmittedTestCaseResult{
			failResult("a", judge.StatusIDAccepted, "Output mismatch.\nExpected: Time Limit\nGot: Compilation"),
		}, model.StatusWrongAnswer},
		{"first failure wins", []SubmittedTestCaseResult{
			passResult("a", 1, 1),
			failResult("b", judge.StatusIDCompilationError, "Compilation Error"),
			failResult("c", judge.StatusIDAccepted, "Output mismatch."),
		}, model.StatusCompilationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveStatus(tt.results); got != tt.want {
				t.Errorf("deriveStatus = %s, want %s", got, tt.want)
			}
		})
	}
}
