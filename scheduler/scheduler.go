package scheduler

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
	cron "github.com/robfig/cron/v3"
)

// Job represents a scheduled job that can be executed
type Job interface {
	Execute() error
	Name() string
}

// CronScheduler manages cron jobs
type CronScheduler struct {
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
	mutex   sync.RWMutex
	running bool
}

// NewCronScheduler creates a new cron scheduler
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		jobs: make(map[string]cron.EntryID),
	}
}

// AddJob adds a job with the given schedule, replacing any job of the same name.
func (s *CronScheduler) AddJob(name string, schedule string, job Job) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		runJob(job)
	})
	if err != nil {
		return err
	}

	s.jobs[name] = entryID
	return nil
}

// RunNow executes the named job synchronously, outside its schedule.
func (s *CronScheduler) RunNow(name string) bool {
	s.mutex.RLock()
	entryID, exists := s.jobs[name]
	s.mutex.RUnlock()
	if !exists {
		return false
	}
	s.cron.Entry(entryID).WrappedJob.Run()
	return true
}

// RemoveJob removes a job by name
func (s *CronScheduler) RemoveJob(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
	}
}

// Jobs returns the names of the registered jobs.
func (s *CronScheduler) Jobs() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Start starts the scheduler
func (s *CronScheduler) Start() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		s.cron.Start()
		s.running = true
	}
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *CronScheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
	}
}

// IsRunning returns whether the scheduler is running
func (s *CronScheduler) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// Reload stops and restarts the scheduler
func (s *CronScheduler) Reload() {
	s.Stop()
	s.Start()
}

func runJob(job Job) {
	log.Debugf("Running job %s", job.Name())
	if err := job.Execute(); err != nil {
		log.Errorf("Job %s failed: %v", job.Name(), err)
	}
}
