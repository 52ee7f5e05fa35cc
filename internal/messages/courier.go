package messages

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/message"

	"capdeck/internal/logging"
)

// Severity grades a notice.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is one delivered message.
type Notice struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	Key      Key       `json:"key"`
	Text     string    `json:"text"`
}

// Courier shows messages to the user.
type Courier interface {
	Show(severity Severity, key Key, args ...any)
}

const defaultRecent = 32

// LogCourier renders notices, logs them and keeps the most recent ones for
// status queries.
type LogCourier struct {
	logger  *slog.Logger
	printer *message.Printer
	limit   int
	now     func() time.Time

	mu     sync.Mutex
	recent []Notice
	subs   []func(Notice)
}

// NewLogCourier returns a courier rendering in lang.
func NewLogCourier(logger *slog.Logger, lang string) *LogCourier {
	return &LogCourier{
		logger:  logging.NewComponentLogger(logger, "messages"),
		printer: NewPrinter(lang),
		limit:   defaultRecent,
		now:     time.Now,
	}
}

// Subscribe registers fn for every future notice.
func (c *LogCourier) Subscribe(fn func(Notice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *LogCourier) Show(severity Severity, key Key, args ...any) {
	n := Notice{
		Time:     c.now(),
		Severity: severity,
		Key:      key,
		Text:     Render(c.printer, key, args...),
	}
	attrs := logging.Args(
		logging.String("message_key", string(key)),
		logging.String(logging.FieldEventType, "user_notice"),
	)
	switch severity {
	case Error:
		c.logger.Error(n.Text, attrs...)
	case Warning:
		c.logger.Warn(n.Text, attrs...)
	default:
		c.logger.Info(n.Text, attrs...)
	}

	c.mu.Lock()
	c.recent = append(c.recent, n)
	if len(c.recent) > c.limit {
		c.recent = slices.Delete(c.recent, 0, len(c.recent)-c.limit)
	}
	subs := slices.Clone(c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

// Recent returns the latest notices, oldest first.
func (c *LogCourier) Recent() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.recent)
}
