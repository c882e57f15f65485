package chatsync

import "time"

const (
	DefaultPollInterval   = 4 * time.Second
	DefaultTypingTimeout  = 1500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

type Option func(*Session)

func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithTypingTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.typingTimeout = d
		}
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(s *Session) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

type nopLogger struct{}

func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(string) {}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(string, string) {}
func (nopMetrics) ObservePush(string)          {}
func (nopMetrics) ObserveSend(string)          {}
