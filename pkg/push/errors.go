package push

import "errors"

var (
	ErrHubClosed                    = errors.New("push: hub is closed")
	ErrFailedToPublish              = errors.New("push: failed to publish message")
	ErrFailedToParseRedisConnString = errors.New("push: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("push: redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("push: redis healthcheck failed")
	ErrNotRealtimeMessage           = errors.New("push: payload is not a realtime message")
)
