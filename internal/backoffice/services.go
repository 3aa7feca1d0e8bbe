// Package backoffice wires the lead board, stores, sessions, intent
// classifier and document vault into one object owned by main.
package backoffice

import (
	"context"
	"time"

	"broker-backoffice/internal/attachments"
	"broker-backoffice/internal/common/config"
	"broker-backoffice/internal/common/logger"
	"broker-backoffice/internal/intent"
	"broker-backoffice/internal/leadstore"
	"broker-backoffice/internal/models"
	"broker-backoffice/internal/notify"
	"broker-backoffice/internal/pipeline"
	"broker-backoffice/internal/session"
	"broker-backoffice/internal/vault"
)

// WorkflowStarter starts a BPMN process instance. Satisfied by camunda.Client.
type WorkflowStarter interface {
	StartProcess(ctx context.Context, processID string, variables interface{}) (int64, error)
}

// Dependencies are the live collaborators. Every nil field is replaced by
// its local demo implementation.
type Dependencies struct {
	Config      *config.Config
	Logger      logger.Logger
	Store       leadstore.Store
	Feed        leadstore.Feed
	Search      leadstore.SearchIndex
	Attachments attachments.Store
	Queue       notify.Queue
	Auth        session.Provider
	Vault       vault.Source
	CRM         CRMSource
	Workflow    WorkflowStarter
	Clock       func() time.Time
}

// Services is the process-wide back-office state.
type Services struct {
	cfg    *config.Config
	logger logger.Logger
	now    func() time.Time

	Leads       leadstore.Store
	Feed        leadstore.Feed
	Search      leadstore.SearchIndex
	Board       *pipeline.Board
	Attachments attachments.Store
	Queue       notify.Queue
	Sessions    *session.Manager
	Classifier  *intent.Classifier
	Diagnostics *intent.Registry
	Vaults      *vault.Sessions

	crm      CRMSource
	workflow WorkflowStarter
	demo     bool

	stopFeed     context.CancelFunc
	stopSignOuts func()
	remoteVault  bool
}

const diagnosticsMaxIdle = 30 * time.Minute

func New(deps Dependencies) (*Services, error) {
	cfg := deps.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	s := &Services{
		cfg:         cfg,
		logger:      log.WithFields(map[string]interface{}{"component": "backoffice"}),
		now:         now,
		Leads:       deps.Store,
		Feed:        deps.Feed,
		Search:      deps.Search,
		Attachments: deps.Attachments,
		Queue:       deps.Queue,
		crm:         deps.CRM,
		workflow:    deps.Workflow,
	}

	if s.Leads == nil {
		s.demo = true
		mem := leadstore.NewMemoryStore(pipeline.SeedLeads())
		s.Leads = mem
		s.Feed = mem
		s.logger.Warn("lead store not configured, running on demo data", nil)
	} else if s.Feed == nil {
		if f, ok := s.Leads.(leadstore.Feed); ok {
			s.Feed = f
		}
	}
	if s.Attachments == nil {
		s.Attachments = attachments.NewMemoryStore(cfg.Contact.MaxAttachmentBytes)
	}
	if s.Queue == nil {
		s.Queue = notify.NewMemoryQueue()
	}

	s.Board = pipeline.NewBoard(s.Leads, pipeline.Options{
		RemoteTimeout:  config.GetDuration(cfg.Pipeline.RemoteTimeout),
		ReconcileGrace: config.GetDuration(cfg.Pipeline.ReconcileGrace),
		Clock:          now,
		Logger:         log,
	})

	rule := session.RoleRule{AdminEmail: cfg.Auth.AdminEmail, AdminPrefix: cfg.Auth.AdminPrefix}
	s.Sessions = session.NewManager(deps.Auth, rule, config.GetDuration(cfg.Auth.SessionTTL), log)

	inactive := make([]models.ProductCategory, 0, len(cfg.Intent.InactiveCategories))
	for _, c := range cfg.Intent.InactiveCategories {
		inactive = append(inactive, models.ProductCategory(c))
	}
	s.Classifier = intent.NewClassifier(nil, intent.Options{
		AccentFolding: cfg.Intent.AccentFolding,
		Inactive:      inactive,
	})
	s.Diagnostics = intent.NewRegistry(s.Classifier, config.GetDuration(cfg.Intent.AnalysisDelay), diagnosticsMaxIdle)

	remote, rootID := deps.Vault, cfg.Integrations.GoogleDrive.RootFolderID
	s.remoteVault = remote != nil
	s.Vaults = vault.NewSessions(func() *vault.Browser {
		return vault.NewBrowser(remote, rootID, log)
	})
	s.stopSignOuts = s.Sessions.Subscribe(func(ev session.Event) {
		if ev.Kind == session.EventSignedOut {
			s.Vaults.Drop(ev.Identity.Subject)
		}
	})

	return s, nil
}

// Demo reports whether the lead store runs on local seed data.
func (s *Services) Demo() bool {
	return s.demo
}

// Modes summarizes which collaborators run live, for /ready.
func (s *Services) Modes() map[string]string {
	mode := func(live bool) string {
		if live {
			return "live"
		}
		return "demo"
	}
	return map[string]string{
		"leads":    mode(!s.demo),
		"search":   mode(s.Search != nil),
		"auth":     mode(!s.Sessions.Offline()),
		"vault":    mode(s.remoteVault),
		"crm":      mode(s.crm != nil),
		"workflow": mode(s.workflow != nil),
	}
}

// Start feeds lead snapshots into the board. A feed that cannot subscribe
// is logged and the board is loaded once from the store instead.
func (s *Services) Start(ctx context.Context) error {
	feedCtx, cancel := context.WithCancel(context.Background())
	s.stopFeed = cancel

	if s.Feed != nil {
		err := s.Feed.Subscribe(feedCtx, s.Board.ApplySnapshot)
		if err == nil {
			return nil
		}
		s.logger.Warn("lead feed unavailable, loading snapshot once", map[string]interface{}{"error": err.Error()})
	}

	leads, err := s.Leads.List(ctx)
	if err != nil {
		s.logger.Error("initial lead load failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	s.Board.ApplySnapshot(leads)
	return nil
}

// Close stops the feed, flushes pending board writes and disposes the
// diagnostic sessions.
func (s *Services) Close(ctx context.Context) error {
	if s.stopFeed != nil {
		s.stopFeed()
	}
	if s.stopSignOuts != nil {
		s.stopSignOuts()
	}
	s.Diagnostics.Close()
	return s.Board.Close(ctx)
}

// SearchLeads queries the search index, or filters the board when no
// index is configured or the index fails.
func (s *Services) SearchLeads(ctx context.Context, term string, size int) ([]models.Lead, error) {
	if s.Search != nil {
		leads, err := s.Search.Search(ctx, term, size)
		if err == nil {
			return leads, nil
		}
		s.logger.Warn("lead search failed, filtering board", map[string]interface{}{"error": err.Error()})
	}
	leads := s.Board.Filter(term)
	if size > 0 && len(leads) > size {
		leads = leads[:size]
	}
	return leads, nil
}

// VaultFor returns the document browser of identity.
func (s *Services) VaultFor(identity models.Identity) *vault.Browser {
	key := identity.Subject
	if key == "" {
		key = identity.Email
	}
	return s.Vaults.For(key)
}

// Config exposes the loaded configuration.
func (s *Services) Config() *config.Config {
	return s.cfg
}
