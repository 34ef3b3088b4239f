package account

import (
	"context"
	"errors"
	"procurement/bizerror"
	"procurement/collection"
	"procurement/domain"
	"procurement/idgen"
	"procurement/seed"
	"procurement/session"
	"procurement/tables"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Options struct {
	IDs *idgen.Generator
	// Seed fills empty users and sectors tables with the default rows.
	Seed bool

	// LoginInterval and LoginBurst bound the login attempts per email.
	LoginInterval time.Duration
	LoginBurst    int
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = idgen.Default()
	}
	if o.LoginInterval <= 0 {
		o.LoginInterval = 2 * time.Second
	}
	if o.LoginBurst <= 0 {
		o.LoginBurst = 5
	}
	return o
}

type State struct {
	Loading         bool     `json:"loading"`
	ConnectionError string   `json:"connectionError,omitempty"`
	MissingTables   []string `json:"missingTables"`
}

// Service owns identities, sectors and the session of this instance.
type Service struct {
	client tables.Client
	slot   session.Slot
	opts   Options

	users   *collection.Collection[int64, domain.Identity]
	sectors *collection.Collection[string, domain.Sector]

	attempts *cache.Cache

	lock    sync.RWMutex
	current *domain.Identity
}

var _ session.Sessions = (*Service)(nil)

// NewService restores the session kept in slot, if any.
func NewService(ctx context.Context, client tables.Client, slot session.Slot, opts Options) *Service {
	opts = opts.withDefaults()
	s := &Service{client: client, slot: slot, opts: opts, attempts: cache.New(10*time.Minute, time.Minute)}

	userOpts := collection.Options[int64, domain.Identity]{
		Table:   domain.TableUsers,
		NewKey:  opts.IDs.NextID,
		WithKey: func(u domain.Identity, id int64) domain.Identity { u.ID = id; return u },
		Prepare: func(u domain.Identity) domain.Identity {
			if u.Role == "" {
				u.Role = domain.RoleUser
			}
			if u.Sector == "" {
				u.Sector = domain.NoSector
			}
			return u
		},
	}
	sectorOpts := collection.Options[string, domain.Sector]{
		Table:   domain.TableSectors,
		NewKey:  func() string { return opts.IDs.NextString("sector") },
		WithKey: func(sec domain.Sector, id string) domain.Sector { sec.ID = id; return sec },
	}
	if opts.Seed {
		userOpts.Seed = seed.Users
		sectorOpts.Seed = seed.Sectors
	}
	s.users = collection.New(client, userOpts)
	s.sectors = collection.New(client, sectorOpts)

	if slot != nil {
		identity, err := slot.Load(ctx)
		if err != nil {
			logrus.WithError(err).Warn("failed to restore session")
		} else if identity != nil {
			s.current = identity
			logrus.WithField("user", identity.Email).Info("session restored")
		}
	}
	return s
}

// Load loads users then sectors. Only the users path is reported, a sectors failure is logged.
func (s *Service) Load(ctx context.Context) error {
	err := s.users.Load(ctx)
	if sErr := s.sectors.Load(ctx); sErr != nil {
		logrus.WithError(sErr).Warn("failed to load sectors")
	}
	return err
}

// Start loads both tables and keeps them in sync until Close.
func (s *Service) Start(ctx context.Context) error {
	err := s.users.Start(ctx)
	if sErr := s.sectors.Start(ctx); sErr != nil {
		logrus.WithError(sErr).Warn("failed to start sectors")
	}
	return err
}

func (s *Service) Close() {
	s.users.Close()
	s.sectors.Close()
}

// Retry clears the setup flag and loads again.
func (s *Service) Retry(ctx context.Context) error {
	s.users.Guard().Clear()
	s.sectors.Guard().Clear()
	return s.Load(ctx)
}

func (s *Service) State() State {
	return State{
		Loading:         s.users.Loading() || s.sectors.Loading(),
		ConnectionError: s.users.LastError(),
		MissingTables:   s.users.Guard().MissingTables(),
	}
}

// Login looks the credential up remotely. A miss and a backend failure look the same to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (domain.Identity, error) {
	if s.users.Guard().Latched() {
		return domain.Identity{}, bizerror.ErrSchemaNotReady
	}
	if !s.limiter(email).Allow() {
		return domain.Identity{}, bizerror.ErrTooManyAttempts
	}

	rows := []domain.Identity{}
	err := s.client.Select(ctx, domain.TableUsers, &rows, tables.Query{Filter: tables.Filter{"email": email, "password": password}})
	if err != nil {
		logrus.WithError(err).WithField("email", email).Warn("login lookup failed")
		return domain.Identity{}, bizerror.ErrUnauthenticated
	}
	if len(rows) == 0 {
		return domain.Identity{}, bizerror.ErrUnauthenticated
	}
	if len(rows) > 1 {
		logrus.WithField("email", email).Warn("several users share the credential, using the first")
	}

	identity := rows[0].Stripped()
	s.lock.Lock()
	s.current = &identity
	s.lock.Unlock()
	s.attempts.Delete(throttleKey(email))

	if s.slot != nil {
		if err := s.slot.Save(ctx, identity); err != nil {
			logrus.WithError(err).Warn("failed to persist session")
		}
	}
	return identity, nil
}

func (s *Service) Logout(ctx context.Context) error {
	s.lock.Lock()
	s.current = nil
	s.lock.Unlock()
	if s.slot != nil {
		return s.slot.Clear(ctx)
	}
	return nil
}

func throttleKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) limiter(email string) *rate.Limiter {
	key := throttleKey(email)
	if l, found := s.attempts.Get(key); found {
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(s.opts.LoginInterval), s.opts.LoginBurst)
	if err := s.attempts.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost a race, use the stored one
		if stored, found := s.attempts.Get(key); found {
			return stored.(*rate.Limiter)
		}
	}
	return l
}

func (s *Service) Current() *domain.Identity {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.current == nil {
		return nil
	}
	identity := *s.current
	return &identity
}

func (s *Service) IsPrivileged() bool {
	identity := s.Current()
	return identity != nil && identity.IsPrivileged()
}

func (s *Service) ListUsers() []domain.Identity {
	return s.users.List()
}

func (s *Service) GetUser(id int64) (domain.Identity, bool) {
	return s.users.Get(id)
}

func (s *Service) AddUser(ctx context.Context, c domain.IdentityCreation) (domain.Identity, *collection.Pending, error) {
	if err := domain.Validate(c); err != nil {
		return domain.Identity{}, nil, err
	}
	identity, pending := s.users.Add(ctx, c.Identity())
	return identity, pending, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, fields tables.Fields) (*collection.Pending, error) {
	if role, ok := fields["role"]; ok {
		if r, _ := role.(string); r != string(domain.RoleAdmin) && r != string(domain.RoleUser) {
			return nil, &bizerror.ErrBadParam{Cause: errors.New("role must be admin or user")}
		}
	}
	return s.users.Update(ctx, id, fields)
}

func (s *Service) DeleteUser(ctx context.Context, id int64) *collection.Pending {
	return s.users.Delete(ctx, id)
}

func (s *Service) ListSectors() []domain.Sector {
	return s.sectors.List()
}

func (s *Service) AddSector(ctx context.Context, c domain.SectorCreation) (domain.Sector, *collection.Pending, error) {
	if err := domain.Validate(c); err != nil {
		return domain.Sector{}, nil, err
	}
	sector, pending := s.sectors.Add(ctx, domain.Sector{Name: c.Name, Description: c.Description})
	return sector, pending, nil
}

func (s *Service) UpdateSector(ctx context.Context, id string, fields tables.Fields) (*collection.Pending, error) {
	return s.sectors.Update(ctx, id, fields)
}

func (s *Service) DeleteSector(ctx context.Context, id string) *collection.Pending {
	return s.sectors.Delete(ctx, id)
}
