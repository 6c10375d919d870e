package locate

import (
	"github.com/tidwall/gjson"
	"igextract/pkg/errors"
	"igextract/pkg/logger"
)

// Strategy extracts a user record from a payload
type Strategy interface {
	Name() string
	Locate(p *Payload, username string) (gjson.Result, error)
}

// Locator tries strategies in order and returns the first hit
type Locator struct {
	strategies []Strategy
	logger     logger.Logger
}

// New creates a Locator over the given strategies
func New(log logger.Logger, strategies ...Strategy) *Locator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Locator{strategies: strategies, logger: log}
}

// NewProfileLocator handles web_profile_info API bodies
func NewProfileLocator(log logger.Logger) *Locator {
	return New(log,
		&DirectPath{Paths: []string{"data.user"}, RequireStatus: "ok"},
		&RecursiveSearch{},
	)
}

// NewDocumentLocator handles rendered profile pages
func NewDocumentLocator(log logger.Logger) *Locator {
	return New(log,
		&SharedData{},
		&ScriptSearch{},
		&MinimalSchema{},
	)
}

// Locate returns the first record any strategy produces.
// Strategy failures are logged and skipped.
func (l *Locator) Locate(p *Payload, username string) (gjson.Result, error) {
	for _, s := range l.strategies {
		rec, err := s.Locate(p, username)
		if err == nil && rec.IsObject() {
			l.logger.DebugWithFields("User record located", map[string]interface{}{
				"strategy": s.Name(),
				"username": username,
			})
			return rec, nil
		}

		fields := map[string]interface{}{"strategy": s.Name(), "username": username}
		if err != nil {
			fields["reason"] = err.Error()
		}
		l.logger.DebugWithFields("Strategy found no user record", fields)
	}

	return gjson.Result{}, errors.Newf(errors.ErrorTypeNotFound, "no user record for %s", username)
}
