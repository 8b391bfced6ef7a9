package reminder

import "github.com/rs/zerolog/log"

// LogNotifier writes reminders to the global logger.
type LogNotifier struct{}

// Notify logs the reminder at info level.
func (LogNotifier) Notify(title, body string) error {
	log.Info().Str("title", title).Str("body", body).Msg("reminder")
	return nil
}
