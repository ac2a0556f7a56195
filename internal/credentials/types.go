package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the transport protocol a connection speaks
type Kind string

const (
	KindSFTP     Kind = "sftp"
	KindFTP      Kind = "ftp"
	KindAPI      Kind = "api"
	KindDatabase Kind = "database"
	// KindUpload reads files pushed through the upload endpoint from a
	// local directory
	KindUpload Kind = "upload"
)

// ParseKind validates a protocol kind string
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSFTP, KindFTP, KindAPI, KindDatabase, KindUpload:
		return k, nil
	default:
		return "", fmt.Errorf("unknown connection kind %q", s)
	}
}

// Credentials is the typed form of a connection's credential map.
// Exactly one of the variants below implements it per Kind.
type Credentials interface {
	Kind() Kind
	Validate() error
	// Path is the remote path embedded in the credentials, if any
	Path() string
	// Candidates lists remote paths to try when nothing more specific is configured
	Candidates() []string
}

type SFTPCredentials struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Username    string   `json:"username"`
	Password    string   `json:"password,omitempty"`
	PrivateKey  string   `json:"privateKey,omitempty"`
	Passphrase  string   `json:"passphrase,omitempty"`
	HostKey     string   `json:"hostKey,omitempty"`
	RemotePath  string   `json:"path,omitempty"`
	RemotePaths []string `json:"remotePaths,omitempty"`
}

func (c *SFTPCredentials) Kind() Kind           { return KindSFTP }
func (c *SFTPCredentials) Path() string         { return c.RemotePath }
func (c *SFTPCredentials) Candidates() []string { return c.RemotePaths }

func (c *SFTPCredentials) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" && c.PrivateKey == "" {
		return errors.New("password or privateKey is required")
	}
	return nil
}

type FTPCredentials struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Username    string   `json:"username"`
	Password    string   `json:"password,omitempty"`
	TLS         bool     `json:"tls,omitempty"`
	RemotePath  string   `json:"path,omitempty"`
	RemotePaths []string `json:"remotePaths,omitempty"`
}

func (c *FTPCredentials) Kind() Kind           { return KindFTP }
func (c *FTPCredentials) Path() string         { return c.RemotePath }
func (c *FTPCredentials) Candidates() []string { return c.RemotePaths }

func (c *FTPCredentials) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// API auth strategies
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthToken  = "token"
	AuthAPIKey = "apikey"
	AuthOAuth  = "oauth"
)

// Pagination styles
const (
	PaginationNone   = ""
	PaginationOffset = "offset"
	PaginationPage   = "page"
)

type Pagination struct {
	Type        string `json:"type,omitempty"`
	LimitParam  string `json:"limitParam,omitempty"`
	OffsetParam string `json:"offsetParam,omitempty"`
	PageParam   string `json:"pageParam,omitempty"`
	PageSize    int    `json:"pageSize,omitempty"`
	MaxPages    int    `json:"maxPages,omitempty"`
}

type APICredentials struct {
	BaseURL      string            `json:"baseUrl"`
	Endpoint     string            `json:"endpoint,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	AuthType     string            `json:"authType,omitempty"`
	Username     string            `json:"username,omitempty"`
	Password     string            `json:"password,omitempty"`
	AccessToken  string            `json:"accessToken,omitempty"`
	APIKey       string            `json:"apiKey,omitempty"`
	APIKeyHeader string            `json:"apiKeyHeader,omitempty"`
	TokenURL     string            `json:"tokenUrl,omitempty"`
	ClientID     string            `json:"clientId,omitempty"`
	SecretKey    string            `json:"secretKey,omitempty"`
	Pagination   Pagination        `json:"pagination,omitempty"`
	RecordsPath  string            `json:"recordsPath,omitempty"`
}

func (c *APICredentials) Kind() Kind           { return KindAPI }
func (c *APICredentials) Path() string         { return c.Endpoint }
func (c *APICredentials) Candidates() []string { return nil }

func (c *APICredentials) Validate() error {
	if c.BaseURL == "" {
		return errors.New("baseUrl is required")
	}
	switch c.AuthType {
	case AuthNone:
	case AuthBasic:
		if c.Username == "" {
			return errors.New("username is required for basic auth")
		}
	case AuthToken:
		if c.AccessToken == "" {
			return errors.New("accessToken is required for token auth")
		}
	case AuthAPIKey:
		if c.APIKey == "" {
			return errors.New("apiKey is required for apikey auth")
		}
	case AuthOAuth:
		if c.TokenURL == "" || c.ClientID == "" || c.SecretKey == "" {
			return errors.New("tokenUrl, clientId and secretKey are required for oauth")
		}
	default:
		return fmt.Errorf("unknown auth type %q", c.AuthType)
	}
	switch c.Pagination.Type {
	case PaginationNone, PaginationOffset, PaginationPage:
	default:
		return fmt.Errorf("unknown pagination type %q", c.Pagination.Type)
	}
	return nil
}

type DatabaseCredentials struct {
	Driver   string `json:"driver"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslMode,omitempty"`
	// Query is used when a fetch names no table or statement
	Query string `json:"query,omitempty"`
	Table string `json:"table,omitempty"`
}

func (c *DatabaseCredentials) Kind() Kind           { return KindDatabase }
func (c *DatabaseCredentials) Path() string         { return c.Table }
func (c *DatabaseCredentials) Candidates() []string { return nil }

func (c *DatabaseCredentials) Validate() error {
	if c.Database == "" {
		return errors.New("database is required")
	}
	if c.Driver == "postgres" && c.Host == "" {
		return errors.New("host is required for postgres")
	}
	return nil
}

// UploadCredentials point at the directory uploaded feeds are written to.
// They hold no secret.
type UploadCredentials struct {
	Directory string `json:"directory"`
	File      string `json:"path,omitempty"`
}

func (c *UploadCredentials) Kind() Kind           { return KindUpload }
func (c *UploadCredentials) Path() string         { return c.File }
func (c *UploadCredentials) Candidates() []string { return nil }

func (c *UploadCredentials) Validate() error {
	if strings.TrimSpace(c.Directory) == "" {
		return errors.New("directory is required")
	}
	return nil
}

// Resolve converts a raw credential map into its typed variant, applying
// protocol defaults and validating required fields.
func Resolve(kind Kind, raw map[string]any) (Credentials, error) {
	var creds Credentials
	switch kind {
	case KindSFTP:
		creds = &SFTPCredentials{}
	case KindFTP:
		creds = &FTPCredentials{}
	case KindAPI:
		creds = &APICredentials{}
	case KindDatabase:
		creds = &DatabaseCredentials{}
	case KindUpload:
		creds = &UploadCredentials{}
	default:
		return nil, fmt.Errorf("unknown connection kind %q", kind)
	}

	data, err := json.Marshal(normalizeAliases(kind, raw))
	if err != nil {
		return nil, fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := json.Unmarshal(data, creds); err != nil {
		return nil, fmt.Errorf("invalid %s credentials: %w", kind, err)
	}

	applyDefaults(creds)
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s credentials: %w", kind, err)
	}
	return creds, nil
}

// normalizeAliases maps the legacy snake_case and short names still found in
// older connection rows onto the canonical keys
func normalizeAliases(kind Kind, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	aliases := map[string]string{
		"private_key":  "privateKey",
		"host_key":     "hostKey",
		"remote_paths": "remotePaths",
	}
	if kind == KindAPI {
		aliases["url"] = "baseUrl"
		aliases["base_url"] = "baseUrl"
		aliases["auth_type"] = "authType"
		aliases["token"] = "accessToken"
		aliases["api_key"] = "apiKey"
		aliases["client_id"] = "clientId"
		aliases["client_secret"] = "secretKey"
		aliases["oauth_url"] = "tokenUrl"
		aliases["records_path"] = "recordsPath"
	}
	for from, to := range aliases {
		if v, ok := out[from]; ok {
			if _, exists := out[to]; !exists {
				out[to] = v
			}
			delete(out, from)
		}
	}
	return out
}

func applyDefaults(creds Credentials) {
	switch c := creds.(type) {
	case *SFTPCredentials:
		if c.Port == 0 {
			c.Port = 22
		}
	case *FTPCredentials:
		if c.Port == 0 {
			c.Port = 21
		}
		if c.Username == "" {
			c.Username = "anonymous"
		}
	case *APICredentials:
		if c.AuthType == "" {
			c.AuthType = AuthNone
		}
		if c.APIKeyHeader == "" {
			c.APIKeyHeader = "X-API-Key"
		}
		c.AuthType = strings.ToLower(c.AuthType)
	case *DatabaseCredentials:
		if c.Driver == "" {
			c.Driver = "postgres"
		}
		if c.Driver == "postgres" && c.Port == 0 {
			c.Port = 5432
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
	}
}
