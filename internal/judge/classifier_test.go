package judge

import (
	"strings"
	"testing"
)

func acceptedResult(stdout string) ExecutionResult {
	return ExecutionResult{
		Stdout: stdout,
		Status: Status{ID: StatusIDAccepted, Description: "Accepted"},
	}
}

func TestClassifyExactMatch(t *testing.T) {
	v := Classify(acceptedResult("42\n"), "42", ClassifyOptions{})
	if !v.Passed {
		t.Fatalf("expected pass, got error %q", v.Error)
	}
	if v.Error != "" {
		t.Errorf("expected empty error, got %q", v.Error)
	}
}

func TestClassifyTrimsBothSides(t *testing.T) {
	v := Classify(acceptedResult("  hello world \n\n"), "hello world\n", ClassifyOptions{})
	if !v.Passed {
		t.Fatalf("expected pass after trimming, got error %q", v.Error)
	}
}

func TestClassifyPrefixMatch(t *testing.T) {
	v := Classify(acceptedResult("42\nextra diagnostics"), "42", ClassifyOptions{})
	if !v.Passed {
		t.Fatalf("expected prefix match to pass, got error %q", v.Error)
	}
}

func TestClassifyMismatchReportsBothPayloads(t *testing.T) {
	v := Classify(acceptedResult("41"), "42", ClassifyOptions{})
	if v.Passed {
		t.Fatal("expected failure")
	}
	if !strings.Contains(v.Error, "Output mismatch") {
		t.Errorf("expected mismatch error, got %q", v.Error)
	}
	if !strings.Contains(v.Error, "42") || !strings.Contains(v.Error, "41") {
		t.Errorf("expected both payloads in error, got %q", v.Error)
	}
}

func TestClassifyMatchingOutputWithBadStatusFails(t *testing.T) {
	res := ExecutionResult{
		Stdout: "42",
		Status: Status{ID: StatusIDRuntimeError, Description: "Runtime Error"},
		Stderr: "segfault",
	}
	v := Classify(res, "42", ClassifyOptions{})
	if v.Passed {
		t.Fatal("matching output must not pass without an accepted status")
	}
	if !strings.Contains(v.Error, "Runtime Error") || !strings.Contains(v.Error, "segfault") {
		t.Errorf("expected status description and stderr, got %q", v.Error)
	}
}

func TestClassifyCompileOutputAppendedOnlyWhenDistinct(t *testing.T) {
	res := ExecutionResult{
		Status:        Status{ID: StatusIDCompilationError, Description: "Compilation Error"},
		Stderr:        "line 3: expected ';'",
		CompileOutput: "line 3: expected ';'",
	}
	v := Classify(res, "", ClassifyOptions{})
	if strings.Count(v.Error, "line 3: expected ';'") != 1 {
		t.Errorf("duplicate compile output should be suppressed, got %q", v.Error)
	}

	res.CompileOutput = "full compiler log"
	v = Classify(res, "", ClassifyOptions{})
	if !strings.Contains(v.Error, "full compiler log") {
		t.Errorf("distinct compile output should be included, got %q", v.Error)
	}
}

func TestClassifyStderrFallback(t *testing.T) {
	res := ExecutionResult{
		Status: Status{ID: StatusIDRuntimeError},
		Stderr: "panic: index out of range",
	}
	v := Classify(res, "42", ClassifyOptions{})
	if !strings.Contains(v.Error, "panic: index out of range") {
		t.Errorf("expected stderr fallback, got %q", v.Error)
	}
}

func TestClassifyUnknownFailure(t *testing.T) {
	res := ExecutionResult{Status: Status{ID: StatusIDRuntimeError}}
	v := Classify(res, "42", ClassifyOptions{})
	if !strings.Contains(v.Error, "unknown reason") {
		t.Errorf("expected unknown-failure marker, got %q", v.Error)
	}
}

func TestClassifyInlineTimingExtraction(t *testing.T) {
	res := acceptedResult("hello\n42.7")
	res.TimeMillis = 5

	v := Classify(res, "hello", ClassifyOptions{ExtractInlineTiming: true})
	if !v.Passed {
		t.Fatalf("expected pass after stripping timing line, got error %q", v.Error)
	}
	if v.Output != "hello" {
		t.Errorf("expected timing line stripped, got %q", v.Output)
	}
	if v.TimeMillis != 42.7 {
		t.Errorf("expected reported time 42.7, got %v", v.TimeMillis)
	}
}

func TestClassifyInlineTimingNonNumericLastLine(t *testing.T) {
	res := acceptedResult("hello\nworld")
	res.TimeMillis = 5

	v := Classify(res, "hello\nworld", ClassifyOptions{ExtractInlineTiming: true})
	if !v.Passed {
		t.Fatalf("expected pass with untouched output, got error %q", v.Error)
	}
	if v.TimeMillis != 5 {
		t.Errorf("expected judge-reported time preserved, got %v", v.TimeMillis)
	}
}

func TestClassifyInlineTimingDisabledByDefault(t *testing.T) {
	v := Classify(acceptedResult("hello\n42.7"), "hello", ClassifyOptions{})
	if !v.Passed {
		// prefix match still applies: "hello\n42.7" starts with "hello"
		t.Fatalf("expected prefix pass, got error %q", v.Error)
	}
	if v.Output != "hello\n42.7" {
		t.Errorf("output must not be rewritten when timing extraction is off, got %q", v.Output)
	}
}
