package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/daylink/internal/application"
	"github.com/example/daylink/internal/persistence/memory"
	"github.com/example/daylink/internal/vault"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks and an in-memory store.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       *memory.Store
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Store:       memory.New(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Store == nil {
		factory.Store = memory.New()
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

func (f *ServiceFactory) newVault() *vault.Vault {
	return vault.New(f.Store, f.Store, NewFastCipher(), f.Clock.NowFunc())
}

// NewProfileService builds a profile service over the factory store. The
// store doubles as the session pointer.
func (f *ServiceFactory) NewProfileService() *application.ProfileService {
	return application.NewProfileServiceWithLogger(f.newVault(), f.Store, f.Clock.NowFunc(), f.Logger)
}

// NewMeetingService builds a meeting service editing profiles' state.
func (f *ServiceFactory) NewMeetingService(profiles *application.ProfileService, canceller application.MeetingCanceller) *application.MeetingService {
	return application.NewMeetingServiceWithLogger(
		profiles,
		canceller,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		f.Logger,
	)
}
