package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"swellwatch/internal/types"
)

// Service routes a JobPayload to the job that handles it.
type Service struct {
	fanout *DailyFanout
	warmer *ScoreWarmer
	clock  types.Clock
	logger *slog.Logger
}

func NewService(fanout *DailyFanout, warmer *ScoreWarmer, clock types.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fanout: fanout, warmer: warmer, clock: clock, logger: logger}
}

// Handle runs the task named by p. An empty task means daily alerts.
func (s *Service) Handle(ctx context.Context, p JobPayload) error {
	day := p.Day(s.clock.Now())
	switch p.Task {
	case TaskDailyAlerts, "":
		_, err := s.fanout.Run(ctx, day)
		return err
	case TaskWarmScores:
		if s.warmer == nil {
			return fmt.Errorf("task %s is not configured", p.Task)
		}
		_, err := s.warmer.WarmScores(ctx, day)
		return err
	default:
		s.logger.WarnContext(ctx, "unknown scheduler task", "task", string(p.Task))
		return fmt.Errorf("unknown task %q", p.Task)
	}
}
