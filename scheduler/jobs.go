package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/drivespace/drivespace/filestore"
	"github.com/drivespace/drivespace/models"
	"github.com/gofiber/fiber/v2/log"
)

// Default schedules for the maintenance jobs.
const (
	SessionCleanupSchedule = "@hourly"
	StorageAuditSchedule   = "30 3 * * *"
)

// SessionCleanupJob deletes expired session tokens.
type SessionCleanupJob struct{}

func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

func (j *SessionCleanupJob) Execute() error {
	removed, err := models.CleanupExpiredSessions()
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Infof("Removed %d expired sessions", removed)
	} else {
		log.Debug("No expired sessions found")
	}
	return nil
}

// StorageAuditReport is the outcome of a storage audit.
type StorageAuditReport struct {
	// Orphaned objects exist in storage without a file record.
	Orphaned []string
	// Missing records point at objects that are not in storage.
	Missing []string
	// CheckedAt is when the audit finished.
	CheckedAt time.Time
}

// StorageAuditJob compares file records with the objects in storage and logs
// any mismatch. It never deletes anything.
type StorageAuditJob struct {
	Backend filestore.Backend
	Timeout time.Duration

	mu   sync.Mutex
	last *StorageAuditReport
}

func (j *StorageAuditJob) Name() string {
	return "storage_audit"
}

func (j *StorageAuditJob) Execute() error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	report, err := AuditStorage(ctx, j.Backend)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	if len(report.Orphaned) > 0 {
		log.Warnf("Storage audit: %d objects in %s storage have no file record", len(report.Orphaned), j.Backend.Name())
	}
	if len(report.Missing) > 0 {
		log.Warnf("Storage audit: %d file records point at missing objects", len(report.Missing))
	}
	return nil
}

// LastReport returns the result of the most recent successful run.
func (j *StorageAuditJob) LastReport() *StorageAuditReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// AuditStorage lists everything under users/ in backend and matches it
// against the storage keys recorded in the database.
func AuditStorage(ctx context.Context, backend filestore.Backend) (*StorageAuditReport, error) {
	stored, err := backend.List(ctx, "users/")
	if err != nil {
		return nil, fmt.Errorf("list %s storage: %w", backend.Name(), err)
	}
	recorded, err := models.GetAllStorageKeys()
	if err != nil {
		return nil, fmt.Errorf("load storage keys: %w", err)
	}

	inStorage := make(map[string]struct{}, len(stored))
	for _, key := range stored {
		inStorage[key] = struct{}{}
	}
	inDB := make(map[string]struct{}, len(recorded))
	for _, key := range recorded {
		inDB[key] = struct{}{}
	}

	report := &StorageAuditReport{}
	for _, key := range stored {
		if _, ok := inDB[key]; !ok {
			report.Orphaned = append(report.Orphaned, key)
		}
	}
	for _, key := range recorded {
		if _, ok := inStorage[key]; !ok {
			report.Missing = append(report.Missing, key)
		}
	}
	report.CheckedAt = time.Now()
	return report, nil
}

var (
	maintenanceScheduler *CronScheduler
	storageAudit         *StorageAuditJob
	maintenanceMutex     sync.Mutex
)

// LastStorageAudit returns the latest report of the scheduled storage audit,
// or nil when it has not completed yet.
func LastStorageAudit() *StorageAuditReport {
	maintenanceMutex.Lock()
	job := storageAudit
	maintenanceMutex.Unlock()

	if job == nil {
		return nil
	}
	return job.LastReport()
}

// InitializeMaintenanceScheduler starts the background maintenance jobs.
// Calling it again replaces the running scheduler.
func InitializeMaintenanceScheduler(backend filestore.Backend) *CronScheduler {
	maintenanceMutex.Lock()
	defer maintenanceMutex.Unlock()

	if maintenanceScheduler != nil {
		maintenanceScheduler.Stop()
	}

	s := NewCronScheduler()
	audit := &StorageAuditJob{Backend: backend}
	jobs := []struct {
		schedule string
		job      Job
	}{
		{SessionCleanupSchedule, &SessionCleanupJob{}},
		{StorageAuditSchedule, audit},
	}
	for _, j := range jobs {
		if err := s.AddJob(j.job.Name(), j.schedule, j.job); err != nil {
			log.Errorf("Failed to register %s job: %v", j.job.Name(), err)
		}
	}
	s.Start()
	maintenanceScheduler = s
	storageAudit = audit

	log.Info("Maintenance scheduler initialized")
	return s
}

// StopMaintenanceScheduler stops the maintenance scheduler if it is running.
func StopMaintenanceScheduler() {
	maintenanceMutex.Lock()
	defer maintenanceMutex.Unlock()

	if maintenanceScheduler != nil {
		log.Info("Stopping maintenance scheduler")
		maintenanceScheduler.Stop()
		maintenanceScheduler = nil
	}
	storageAudit = nil
}
