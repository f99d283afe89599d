package eventbus

import "clinic-server-go/internal/domain/model"

// RegisterAuditLog subscribes a logging sink to every security topic so the
// audit trail lands in the structured log even with no other consumers.
func RegisterAuditLog(bus *Bus, logger model.Logger) error {
	if err := bus.Subscribe(EventLogin, func(data AuthEventData) {
		logger.Info("audit login: client %d in %q from %s", data.ClientID, data.Group, data.IP)
	}); err != nil {
		return err
	}
	if err := bus.Subscribe(EventLogout, func(data AuthEventData) {
		logger.Info("audit logout: client %d in %q", data.ClientID, data.Group)
	}); err != nil {
		return err
	}
	if err := bus.Subscribe(EventBanned, func(data ThrottleEventData) {
		logger.Warn("audit ban: %s", data.IP)
	}); err != nil {
		return err
	}
	return bus.Subscribe(EventRateLimited, func(data ThrottleEventData) {
		logger.Warn("audit rate limit: %s", data.IP)
	})
}
