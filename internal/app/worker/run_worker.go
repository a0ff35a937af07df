package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"cohortly/internal/app/service"
	"cohortly/internal/domain/repository"
	"cohortly/internal/judge"

	"github.com/redis/go-redis/v9"
)

// RunWorker drains the ad-hoc test-run queue. Each job executes the learner's
// code against the question's visible test cases (or a single custom input)
// and parks the verdicts under the job's result key.
type RunWorker struct {
	rdb          *redis.Client
	questionRepo repository.QuestionRepository
	runService   *service.RunService
	scheduler    *judge.Scheduler
	classifyOpts judge.ClassifyOptions
	queueName    string
}

func NewRunWorker(
	rdb *redis.Client,
	questionRepo repository.QuestionRepository,
	runService *service.RunService,
	scheduler *judge.Scheduler,
	classifyOpts judge.ClassifyOptions,
	queueName string,
) *RunWorker {
	return &RunWorker{
		rdb:          rdb,
		questionRepo: questionRepo,
		runService:   runService,
		scheduler:    scheduler,
		classifyOpts: classifyOpts,
		queueName:    queueName,
	}
}

func (w *RunWorker) Start(ctx context.Context) {
	log.Println("Run worker started, listening to queue:", w.queueName)
	for {
		select {
		case <-ctx.Done():
			log.Println("Run worker stopping...")
			return
		default:
			popped, err := w.rdb.BRPop(ctx, 5*time.Second, w.queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				log.Printf("ERROR: failed to BRPop from queue '%s': %v", w.queueName, err)
				time.Sleep(5 * time.Second)
				continue
			}
			if len(popped) < 2 || popped[1] == "" {
				log.Println("WARN: BRPop returned an empty payload")
				continue
			}
			w.processJob(ctx, []byte(popped[1]))
		}
	}
}

func (w *RunWorker) processJob(ctx context.Context, payload []byte) {
	var job service.RunJob
	if err := json.Unmarshal(payload, &job); err != nil {
		log.Printf("ERROR: failed to decode run job payload: %v", err)
		return
	}
	log.Printf("INFO: run worker picked up job %s (question %s)", job.JobID, job.QuestionID)

	runs, err := w.buildRuns(ctx, job)
	if err != nil {
		w.storeFailure(ctx, job.JobID, err.Error())
		return
	}
	if len(runs) == 0 {
		w.storeFailure(ctx, job.JobID, "question has no visible test cases and no custom input was provided")
		return
	}

	verdicts := w.scheduler.RunTestCases(ctx, job.Language, job.Code, runs, w.classifyOpts)
	data, err := json.Marshal(verdicts)
	if err != nil {
		w.storeFailure(ctx, job.JobID, "failed to encode verdicts")
		return
	}

	now := time.Now()
	result := service.RunResult{
		JobID:       job.JobID,
		Status:      service.RunStatusCompleted,
		Verdicts:    data,
		CompletedAt: &now,
	}
	if err := w.runService.StoreRunResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to store result for run job %s: %v", job.JobID, err)
	}
}

// buildRuns resolves the job's inputs: a custom input runs alone with no
// expected output, otherwise every visible test case runs.
func (w *RunWorker) buildRuns(ctx context.Context, job service.RunJob) ([]judge.TestCaseRun, error) {
	if job.CustomInput != nil {
		return []judge.TestCaseRun{{TestCaseID: "custom", Input: *job.CustomInput}}, nil
	}

	testCases, err := w.questionRepo.GetTestCasesByQuestionID(ctx, job.QuestionID)
	if err != nil {
		return nil, err
	}
	var runs []judge.TestCaseRun
	for _, tc := range testCases {
		if tc.Hidden {
			continue
		}
		runs = append(runs, judge.TestCaseRun{TestCaseID: tc.ID, Input: tc.Input, ExpectedOutput: tc.ExpectedOutput})
	}
	return runs, nil
}

func (w *RunWorker) storeFailure(ctx context.Context, jobID, msg string) {
	now := time.Now()
	result := service.RunResult{
		JobID:       jobID,
		Status:      service.RunStatusFailed,
		Error:       msg,
		CompletedAt: &now,
	}
	if err := w.runService.StoreRunResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to store failure for run job %s: %v", jobID, err)
	}
}
