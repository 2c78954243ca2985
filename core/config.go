package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DBEngineMemory   = "memory"
	DBEnginePostgres = "postgres"
	DBEngineSQLite   = "sqlite3"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type (
	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		SendgridApiKey            string
		RollbarToken              string
		PasswordResetTimeoutDelta time.Duration
		defaultFromEmail          string

		Server   serverConfig
		Database databaseConfig
		Session  sessionConfig
		Admin    adminConfig
	}

	serverConfig struct {
		Host                      string
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}

	// adminConfig is the admin seeded at API startup. Nothing is seeded without an email.
	adminConfig struct {
		Name     string
		Email    string
		Password string
	}

	sessionConfig struct {
		Store         string
		TTL           time.Duration
		RedisAddress  string
		RedisPassword string
		RedisDB       int
	}
)

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA or PROD).
// Values come from the environment, prefixed with the env name (ie: DEV_SECRETKEY, PROD_DATABASE_HOST),
// with config/.env.<env> loaded first if it exists.
func NewConfig() *Config {
	conf, err := loadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func loadConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Roster")
	v.SetDefault("build", "dev")
	// QA & PROD must provide their own key
	if env == "DEV" || env == "TEST" {
		v.SetDefault("secretKey", "ng4#b9=2x_s*ru@w!q8)3lz%k7c$e1f(hv5+mt0jdp6yo^a-")
	} else {
		v.SetDefault("secretKey", "")
	}
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "Roster <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 8*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", DBEngineSQLite)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "roster")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "roster.db")

	v.SetDefault("admin.name", "Admin")
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")

	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.ttl", 8*time.Hour)
	v.SetDefault("session.redisAddress", "localhost:6379")
	v.SetDefault("session.redisPassword", "")
	v.SetDefault("session.redisDB", 0)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		AppName:                   v.GetString("appName"),
		Build:                     v.GetString("build"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: serverConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugAddress:              v.GetString("server.debugAddress"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			ReadTimeout:               v.GetDuration("server.readTimeout"),
			WriteTimeout:              v.GetDuration("server.writeTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: databaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Session: sessionConfig{
			Store:         strings.ToLower(v.GetString("session.store")),
			TTL:           v.GetDuration("session.ttl"),
			RedisAddress:  v.GetString("session.redisAddress"),
			RedisPassword: v.GetString("session.redisPassword"),
			RedisDB:       v.GetInt("session.redisDB"),
		},
		Admin: adminConfig{
			Name:     v.GetString("admin.name"),
			Email:    v.GetString("admin.email"),
			Password: v.GetString("admin.password"),
		},
	}
	if conf.SecretKey == "" {
		return nil, errors.Errorf("%s_SECRETKEY is required", env)
	}
	return conf, nil
}

// configDir returns the directory holding the .env files. ROSTER_CONFIG_DIR wins over ./config.
func configDir() string {
	if dir := os.Getenv("ROSTER_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "config"
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

func (dbConf databaseConfig) Address() string {
	if _, err := strconv.Atoi(dbConf.Port); err != nil || dbConf.Port == "" {
		return dbConf.Host
	}
	return net.JoinHostPort(dbConf.Host, dbConf.Port)
}
