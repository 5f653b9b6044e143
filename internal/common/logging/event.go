package logging

// Event is the fixed-shape record emitted for enrichment work:
// request_id, action, outcome and, when present, error. A single Event is
// shared by every attempt of one provider call so the entries correlate.
type Event struct {
	logger    Logger
	RequestID string
	Action    string
}

// NewEvent binds an action and request ID to logger. A nil logger falls
// back to the global one.
func NewEvent(logger Logger, requestID, action string) *Event {
	if logger == nil {
		logger = GetGlobalLogger()
	}
	return &Event{logger: logger, RequestID: requestID, Action: action}
}

// Log writes one entry at level with the given outcome.
func (e *Event) Log(level LogLevel, outcome string, err error) {
	msg := e.Action + ": " + outcome
	fields := []Field{
		String("request_id", e.RequestID),
		String("action", e.Action),
		String("outcome", outcome),
	}

	if level == ErrorLevel {
		e.logger.Error(msg, err, fields...)
		return
	}

	if err != nil {
		fields = append(fields, Err(err))
	}
	switch level {
	case DebugLevel:
		e.logger.Debug(msg, fields...)
	case WarnLevel:
		e.logger.Warn(msg, fields...)
	default:
		e.logger.Info(msg, fields...)
	}
}

func (e *Event) Info(outcome string) {
	e.Log(InfoLevel, outcome, nil)
}

func (e *Event) Warn(outcome string, err error) {
	e.Log(WarnLevel, outcome, err)
}

func (e *Event) Error(outcome string, err error) {
	e.Log(ErrorLevel, outcome, err)
}
