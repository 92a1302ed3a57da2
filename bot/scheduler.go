package bot

import (
	"log/slog"
	"sync"
	"time"
)

// Task is a job run on a fixed interval. The first run happens one interval
// after Start.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func()
}

type Scheduler struct {
	tasks []Task
	log   *slog.Logger
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

func NewScheduler(log *slog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks: tasks,
		log:   log.With("component", "scheduler"),
		done:  make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	for _, t := range s.tasks {
		if t.Interval <= 0 || t.Run == nil {
			s.log.Warn("Skipping task without interval", "task", t.Name)
			continue
		}
		s.wg.Add(1)
		go s.loop(t)
	}
}

// Stop ends every loop and waits for a run in progress to finish.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.log.Info("Stopping scheduler")
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Scheduler) loop(t Task) {
	defer s.wg.Done()
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	s.log.Info("Task scheduled", "task", t.Name, "interval", t.Interval)
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.run(t)
		}
	}
}

func (s *Scheduler) run(t Task) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Task panicked", "task", t.Name, "panic", r)
		}
	}()
	start := time.Now()
	t.Run()
	s.log.Debug("Task finished", "task", t.Name, "took", time.Since(start))
}
