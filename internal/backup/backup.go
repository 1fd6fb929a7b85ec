package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Scheduler snapshots the JSON data files once a day. The flat-file store
// rewrites whole files in place with no journaling, so a dated copy is the
// only recovery path after a bad write.
type Scheduler struct {
	scheduler *gocron.Scheduler
	log       logrus.FieldLogger
	sources   []string
	destDir   string
	at        string
}

func New(sources []string, destDir, at string, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		log:       log,
		sources:   sources,
		destDir:   destDir,
		at:        at,
	}
}

// Start schedules the daily snapshot and returns immediately.
func (s *Scheduler) Start() error {
	if _, err := s.scheduler.Every(1).Day().At(s.at).Do(s.snapshot); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

func (s *Scheduler) Stop() { s.scheduler.Stop() }

func (s *Scheduler) snapshot() {
	stamp := time.Now().Format("20060102-150405")
	dir := filepath.Join(s.destDir, stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.WithError(err).Error("backup dir create failed")
		return
	}
	copied := 0
	for _, src := range s.sources {
		if !strings.HasSuffix(src, ".json") {
			continue
		}
		if err := copyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			s.log.WithError(err).WithField("file", src).Error("backup copy failed")
			continue
		}
		copied++
	}
	s.log.WithFields(logrus.Fields{"dir": dir, "files": copied}).Info("data snapshot written")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
