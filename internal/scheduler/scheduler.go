// internal/scheduler/scheduler.go
package scheduler

import (
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job은 주기적으로 실행되는 작업 인터페이스를 정의합니다
type Job interface {
	Run() error
	Name() string
}

// Scheduler는 백그라운드 작업을 관리합니다
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New는 새로운 스케줄러를 생성합니다
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob은 크론 표현식으로 작업을 등록합니다
// 예: "@every 15m", "0 9 * * MON-FRI"
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("작업 실행")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("작업 실패")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("작업 등록")

	return nil
}

// Start는 스케줄러를 시작합니다
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("스케줄러 시작")
}

// Stop은 실행 중인 작업이 끝날 때까지 기다린 뒤 스케줄러를 중지합니다
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("스케줄러 중지")
}
