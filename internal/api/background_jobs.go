package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cv-screener/internal/screening"
	"cv-screener/internal/storage"
)

const archiveTimeout = 10 * time.Second

// archiveJob is either a completed batch (run set) or a shortlist toggle for
// the latest archived batch of a session.
type archiveJob struct {
	sessionID   string
	run         *storage.Run
	results     []storage.RunResult
	candidate   string
	shortlisted bool
	timestamp   time.Time
}

// StartBackgroundWorkers starts the archive worker when an archive is configured.
func (a *API) StartBackgroundWorkers() {
	if a.archiveQueue == nil {
		return
	}

	a.workersDone.Add(1)
	go a.archiveWorker()

	a.logger.Info("background workers started", zap.Int("archive_queue", cap(a.archiveQueue)))
}

// Close stops accepting archive jobs and waits for queued ones to finish.
// Handlers still running after Close drop their jobs.
func (a *API) Close() {
	if a.archiveQueue == nil {
		return
	}

	a.archiveMu.Lock()
	if a.archiveClosed {
		a.archiveMu.Unlock()
		return
	}
	a.archiveClosed = true
	close(a.archiveQueue)
	a.archiveMu.Unlock()

	a.workersDone.Wait()
}

// archiveWorker applies jobs in queue order, so a toggle never overtakes the
// batch it refers to.
func (a *API) archiveWorker() {
	defer a.workersDone.Done()

	latestRun := map[string]uuid.UUID{}
	log := a.logger.Named("archive")

	for job := range a.archiveQueue {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)

		if job.run != nil {
			if err := a.archive.SaveRun(ctx, job.run, job.results); err != nil {
				log.Error("failed to archive run", zap.String("session", job.sessionID), zap.Error(err))
			} else {
				latestRun[job.sessionID] = job.run.ID
				log.Info("run archived",
					zap.String("run_id", job.run.ID.String()),
					zap.Int("results", len(job.results)),
					zap.Duration("took", time.Since(job.timestamp)),
				)
			}
			cancel()
			continue
		}

		runID, ok := latestRun[job.sessionID]
		if !ok {
			log.Debug("no archived run for shortlist toggle", zap.String("session", job.sessionID))
			cancel()
			continue
		}
		if err := a.archive.SetShortlisted(ctx, runID, job.candidate, job.shortlisted); err != nil {
			log.Error("failed to update shortlist",
				zap.String("run_id", runID.String()),
				zap.String("candidate", job.candidate),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// queueArchiveJob never blocks the request; a full queue drops the job.
func (a *API) queueArchiveJob(job archiveJob) {
	if a.archiveQueue == nil {
		return
	}
	job.timestamp = time.Now()

	a.archiveMu.RLock()
	defer a.archiveMu.RUnlock()
	if a.archiveClosed {
		a.logger.Warn("archive closed, dropping job", zap.String("session", job.sessionID))
		return
	}

	select {
	case a.archiveQueue <- job:
	default:
		a.logger.Warn("archive queue full, dropping job", zap.String("session", job.sessionID))
	}
}

func (a *API) queueRun(sessionID, jobDescription string, report screening.BatchReport, results []screening.MatchResult) {
	a.queueArchiveJob(archiveJob{
		sessionID: sessionID,
		run: &storage.Run{
			ID:             uuid.New(),
			SessionID:      sessionID,
			JobDescription: jobDescription,
			Processed:      report.Processed,
			Skipped:        report.Skipped,
		},
		results: storage.NewRunResults(results),
	})
}

func (a *API) queueShortlist(sessionID, candidate string, shortlisted bool) {
	a.queueArchiveJob(archiveJob{sessionID: sessionID, candidate: candidate, shortlisted: shortlisted})
}
