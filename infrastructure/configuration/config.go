package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"channel-insight/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	YouTube     YouTube     `json:"youtube"`
	Sync        Sync        `json:"sync"`
	Retry       Retry       `json:"retry"`
}

type App struct {
	Name string `json:"name"`
	Env  string `json:"env"`
}

type Database struct {
	// Vendor selects the snapshot store: "psql" (default) or "mssql"
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	MySql  Db     `json:"mysql"`
	Mongo  Db     `json:"mongo"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

type YouTube struct {
	APIKeys      []string      `json:"apiKeys"`
	OAuthClients []OAuthClient `json:"oauthClients"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RefreshToken string `json:"refreshToken"`
}

// Sync holds the knobs of the synchronization engine
type Sync struct {
	MaxVideos           int           `json:"maxVideos"`
	MaxCommentsPerVideo int           `json:"maxCommentsPerVideo"`
	PageInterval        time.Duration `json:"pageInterval"`
	CommentPageInterval time.Duration `json:"commentPageInterval"`
	CallTimeout         time.Duration `json:"callTimeout"`
	WorkerSafetyFactor  int           `json:"workerSafetyFactor"`
	DetailsBatchSize    int           `json:"detailsBatchSize"`
	Interval            time.Duration `json:"interval"`
	LockTTL             time.Duration `json:"lockTTL"`
	Targets             []Target      `json:"targets"`
}

// Target is one (owner, channel) scope the worker keeps in sync
type Target struct {
	OwnerID     string `json:"ownerId"`
	ChannelName string `json:"channelName"`
	ChannelID   string `json:"channelId"`
}

type Retry struct {
	MaxRetries     int           `json:"maxRetries"`
	InitialBackoff time.Duration `json:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff"`
	Multiplier     float64       `json:"multiplier"`
	JitterFraction float64       `json:"jitterFraction"`
}

var C Config

func init() {
	Reload()
}

// Reload reads the config file and env again, e.g. after env files were loaded
func Reload() {
	LoadConfig()
	initDatabase(&C)
	ApplyDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Vendor = getConfigValue(C.Database.Vendor, "DB_VENDOR", "psql")

	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "postgres")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")

	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "sa")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.MySql.Name = getConfigValue(C.Database.MySql.Name, "MYSQL_DB_NAME", "")
	C.Database.MySql.Host = getConfigValue(C.Database.MySql.Host, "MYSQL_HOST", "localhost")
	C.Database.MySql.Port = getConfigValue(C.Database.MySql.Port, "MYSQL_PORT", "3306")
	C.Database.MySql.User = getConfigValue(C.Database.MySql.User, "MYSQL_USER", "root")
	C.Database.MySql.Password = getConfigValue(C.Database.MySql.Password, "MYSQL_PASSWORD", "")
}

// ApplyDefaults fills zero-valued sync and retry settings
func ApplyDefaults(C *Config) {
	s := &C.Sync
	if v := os.Getenv("SYNC_MAX_VIDEOS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxVideos = n
		}
	}
	if s.MaxVideos == 0 {
		s.MaxVideos = 100
	}
	if s.PageInterval == 0 {
		s.PageInterval = time.Second
	}
	if s.CommentPageInterval == 0 {
		s.CommentPageInterval = 1200 * time.Millisecond
	}
	if s.CallTimeout == 0 {
		s.CallTimeout = 30 * time.Second
	}
	if s.WorkerSafetyFactor <= 0 {
		s.WorkerSafetyFactor = 2
	}
	if s.DetailsBatchSize <= 0 || s.DetailsBatchSize > 50 {
		s.DetailsBatchSize = 50
	}
	if s.Interval == 0 {
		s.Interval = 6 * time.Hour
	}
	if s.LockTTL == 0 {
		s.LockTTL = 30 * time.Minute
	}

	r := &C.Retry
	if r.MaxRetries == 0 {
		r.MaxRetries = 3
	}
	if r.InitialBackoff == 0 {
		r.InitialBackoff = 500 * time.Millisecond
	}
	if r.MaxBackoff == 0 {
		r.MaxBackoff = 10 * time.Second
	}
	if r.Multiplier == 0 {
		r.Multiplier = 2
	}
	if r.JitterFraction == 0 {
		r.JitterFraction = 0.1
	}

	C.Logger.Format = getConfigValue(C.Logger.Format, "LOG_FORMAT", "json")
	C.Logger.Level = getConfigValue(C.Logger.Level, "LOG_LEVEL", "debug")
}
