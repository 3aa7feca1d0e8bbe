// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
//
// Every backend section is optional. A collaborator whose section is empty
// runs in demo mode on local seed data instead of failing startup.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Auth          AuthConfig              `mapstructure:"auth"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Intent        IntentConfig            `mapstructure:"intent"`
	Contact       ContactConfig           `mapstructure:"contact"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	LeadProcessID  string `mapstructure:"lead_process_id"`
}

// Configured reports whether a Zeebe gateway was provided.
func (c CamundaConfig) Configured() bool {
	return c.BrokerAddress != ""
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

func (p PostgresConfig) Configured() bool {
	return p.Host != "" && p.Database != ""
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	LeadIndex string   `mapstructure:"lead_index"`
}

// GetURL returns the explicit URL or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

func (e ElasticsearchConfig) Configured() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Configured() bool {
	return r.Address != ""
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Specific Configuration Sections ---

// AuthConfig holds the identity provider and the role rule.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`

	// AdminEmail and AdminPrefix decide which identities get the admin role.
	AdminEmail  string `mapstructure:"admin_email"`
	AdminPrefix string `mapstructure:"admin_prefix"`
	SessionTTL  int    `mapstructure:"session_ttl"` // milliseconds
}

func (a AuthConfig) KeycloakConfigured() bool {
	return a.Keycloak.URL != "" && a.Keycloak.Realm != "" && a.Keycloak.ClientID != ""
}

// IntegrationConfig holds settings for CRM, cloud storage, mail and Drive.
type IntegrationConfig struct {
	Zoho struct {
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		BaseURL   string `mapstructure:"base_url"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
			AlertPhone         string `mapstructure:"alert_phone"`
		} `mapstructure:"sns"`
		S3 struct {
			Bucket        string `mapstructure:"bucket"`
			PublicBaseURL string `mapstructure:"public_base_url"`
		} `mapstructure:"s3"`
	} `mapstructure:"aws"`

	GoogleDrive GoogleDriveConfig `mapstructure:"google_drive"`
}

// GoogleDriveConfig configures the remote document vault.
type GoogleDriveConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_uri"`
	TokenFile    string `mapstructure:"token_file"`
	RootFolderID string `mapstructure:"root_folder_id"`
	CacheTTL     int    `mapstructure:"cache_ttl"` // milliseconds
}

// Configured reports whether Drive credentials are present. The vault runs
// in seed mode otherwise.
func (g GoogleDriveConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.TokenFile != ""
}

// PipelineConfig tunes the lead board.
type PipelineConfig struct {
	RemoteTimeout  int  `mapstructure:"remote_timeout"`  // milliseconds
	ReconcileGrace int  `mapstructure:"reconcile_grace"` // milliseconds
	DemoMode       bool `mapstructure:"demo_mode"`
}

// IntentConfig tunes the keyword classifier and its analysis session.
type IntentConfig struct {
	AnalysisDelay      int      `mapstructure:"analysis_delay"` // milliseconds
	AccentFolding      bool     `mapstructure:"accent_folding"`
	InactiveCategories []string `mapstructure:"inactive_categories"`
}

// ContactConfig holds the public contact form settings.
type ContactConfig struct {
	MaxAttachmentBytes int64  `mapstructure:"max_attachment_bytes"`
	ContentName        string `mapstructure:"content_name"`
}

// NotificationConfig holds settings for the send-notification worker.
type NotificationConfig struct {
	Email struct {
		Enabled     bool   `mapstructure:"enabled"`
		FromEmail   string `mapstructure:"from_email"`
		BrokerEmail string `mapstructure:"broker_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	BatchSize int `mapstructure:"batch_size"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
