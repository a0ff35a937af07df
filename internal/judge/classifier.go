package judge

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassifyOptions tunes how a raw execution result is turned into a verdict.
type ClassifyOptions struct {
	// ExtractInlineTiming opts in to treating the final stdout line as the
	// program's self-reported execution time in milliseconds. The line is
	// stripped from the compared output and its value overrides the judge's
	// wall-clock measurement. Only enable this for harnesses that actually
	// print a timing line; it is never inferred from the source.
	ExtractInlineTiming bool
}

// Verdict is the per-test-case outcome of comparing an execution result
// against an expected output.
type Verdict struct {
	Passed     bool
	Output     string
	Error      string
	TimeMillis float64
	MemoryKb   int
}

// Classify compares one execution result against the expected output. A pass
// requires both an Accepted status and a matching output; trailing whitespace
// is ignored on both sides, and actual output that merely extends the
// expected output still matches.
func Classify(res ExecutionResult, expectedOutput string, opts ClassifyOptions) Verdict {
	stdout := res.Stdout
	timeMillis := res.TimeMillis
	if opts.ExtractInlineTiming {
		stdout, timeMillis = extractInlineTiming(stdout, timeMillis)
	}

	expected := strings.TrimSpace(expectedOutput)
	actual := strings.TrimSpace(stdout)
	match := actual == expected || strings.HasPrefix(actual, expected)

	v := Verdict{
		Output:     stdout,
		TimeMillis: timeMillis,
		MemoryKb:   res.MemoryKb,
	}
	if res.Status.ID == StatusIDAccepted && match {
		v.Passed = true
		return v
	}

	switch {
	case res.Status.ID == StatusIDAccepted:
		v.Error = fmt.Sprintf("Output mismatch.\n--- Expected Output ---\n%s\n--- Actual Output ---\n%s\n---", expectedOutput, stdout)
	case res.Status.Description != "":
		var b strings.Builder
		b.WriteString(res.Status.Description)
		if res.Stderr != "" {
			b.WriteString("\nDetails (stderr):\n")
			b.WriteString(res.Stderr)
		}
		if res.CompileOutput != "" && res.CompileOutput != res.Stderr {
			b.WriteString("\nDetails (compile output):\n")
			b.WriteString(res.CompileOutput)
		}
		v.Error = b.String()
	case res.Stderr != "":
		v.Error = "Runtime error:\n" + res.Stderr
	case res.CompileOutput != "":
		v.Error = "Compilation error:\n" + res.CompileOutput
	default:
		v.Error = "Test failed for an unknown reason. The judge provided no output or error details."
	}
	return v
}

// extractInlineTiming parses the last stdout line as a float. If it does not
// parse, the output and timing are left untouched.
func extractInlineTiming(stdout string, fallback float64) (string, float64) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return stdout, fallback
	}
	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	t, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return stdout, fallback
	}
	return strings.Join(lines[:len(lines)-1], "\n"), t
}
