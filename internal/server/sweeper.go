package server

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// sweepSchedule runs the expired-session sweep once a minute
const sweepSchedule = "* * * * *"

// startSweeper schedules removal of expired sessions
func (s *Server) startSweeper() error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(sweepSchedule, s.sweepExpiredSessions); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler
	s.logger.Info().Str("schedule", sweepSchedule).Msg("Session sweeper started")
	return nil
}

func (s *Server) sweepExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sweep expired sessions")
		return
	}
	if deleted > 0 {
		s.logger.Info().Int64("deleted", deleted).Msg("Swept expired sessions")
	}
}
