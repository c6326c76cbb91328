// Package logger builds slog loggers for notifykit services and provides
// attribute constructors that keep key names consistent across packages.
//
//	log := logger.New(logger.WithEnvironment("production", "notifyd"))
//	logger.SetAsDefault(log)
//
//	log.LogAttrs(ctx, slog.LevelInfo, "Notification created",
//	    logger.NotificationID(n.ID),
//	    logger.TriggerType(n.Trigger.Type),
//	)
//
// Development environments get a text handler at debug level; staging and
// production get a JSON handler at info level.
package logger
