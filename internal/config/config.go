package config

import (
	"strings"

	"github.com/spf13/viper"
)

// The service reads from the access control database (card holders, raw scan
// transactions, schedules) and writes to the attendance database (report rows,
// sync run log). Both connections plus the queue and legacy endpoints are set
// per environment; in EKS they arrive as pod environment variables.

type Config struct {
	SourceDBHost     string `mapstructure:"SOURCE_DB_HOST"`
	SourceDBPort     string `mapstructure:"SOURCE_DB_PORT"`
	SourceDBUser     string `mapstructure:"SOURCE_DB_USER"`
	SourceDBPassword string `mapstructure:"SOURCE_DB_PASSWORD"`
	SourceDBName     string `mapstructure:"SOURCE_DB_NAME"`

	AttendanceDBHost     string `mapstructure:"ATTENDANCE_DB_HOST"`
	AttendanceDBPort     string `mapstructure:"ATTENDANCE_DB_PORT"`
	AttendanceDBUser     string `mapstructure:"ATTENDANCE_DB_USER"`
	AttendanceDBPassword string `mapstructure:"ATTENDANCE_DB_PASSWORD"`
	AttendanceDBName     string `mapstructure:"ATTENDANCE_DB_NAME"`

	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSEndpoint        string `mapstructure:"AWS_ENDPOINT"`
	ForwardSQSQueueURL string `mapstructure:"FORWARD_SQS_QUEUE_URL"`
	NotifySQSQueueURL  string `mapstructure:"NOTIFY_SQS_QUEUE_URL"`

	LegacyClockingURL string `mapstructure:"LEGACY_CLOCKING_URL"`
	OTLPEndpoint      string `mapstructure:"OTLP_ENDPOINT"`

	// Classification knobs. Zero values fall back to the core defaults.
	EventToleranceSeconds  int    `mapstructure:"EVENT_TOLERANCE_SECONDS"`
	StatusToleranceMinutes int    `mapstructure:"STATUS_TOLERANCE_MINUTES"`
	ClassificationMode     string `mapstructure:"CLASSIFICATION_MODE"`

	// Source filters. Controllers is a comma separated allow-list; empty
	// means all controllers.
	Controllers     string `mapstructure:"CONTROLLERS"`
	StaffPrefix     string `mapstructure:"STAFF_PREFIX"`
	TransactionKind string `mapstructure:"TRANSACTION_KIND"`

	NotifySender    string `mapstructure:"NOTIFY_SENDER"`
	NotifyRecipient string `mapstructure:"NOTIFY_RECIPIENT"`

	IsLocalDev bool `mapstructure:"IS_LOCAL_DEV"`
}

// ControllerList splits the comma separated allow-list, dropping blanks.
func (c Config) ControllerList() []string {
	if c.Controllers == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(c.Controllers, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadConfig reads configuration from environment variables with local
// development defaults.
func LoadConfig() (config Config, err error) {
	viper.SetDefault("SOURCE_DB_HOST", "db")
	viper.SetDefault("SOURCE_DB_PORT", "5432")
	viper.SetDefault("SOURCE_DB_USER", "user")
	viper.SetDefault("SOURCE_DB_PASSWORD", "password")
	viper.SetDefault("SOURCE_DB_NAME", "access_control_db")
	viper.SetDefault("ATTENDANCE_DB_HOST", "db")
	viper.SetDefault("ATTENDANCE_DB_PORT", "5432")
	viper.SetDefault("ATTENDANCE_DB_USER", "user")
	viper.SetDefault("ATTENDANCE_DB_PASSWORD", "password")
	viper.SetDefault("ATTENDANCE_DB_NAME", "attendance_db")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("AWS_ENDPOINT", "http://localstack:4566")
	viper.SetDefault("FORWARD_SQS_QUEUE_URL", "http://localstack:4566/000000000000/forward-queue")
	viper.SetDefault("NOTIFY_SQS_QUEUE_URL", "http://localstack:4566/000000000000/notify-queue")
	viper.SetDefault("LEGACY_CLOCKING_URL", "http://localhost:8081/")
	viper.SetDefault("OTLP_ENDPOINT", "jaeger:4317")
	viper.SetDefault("EVENT_TOLERANCE_SECONDS", 3600)
	viper.SetDefault("STATUS_TOLERANCE_MINUTES", 30)
	viper.SetDefault("CLASSIFICATION_MODE", "tolerance")
	viper.SetDefault("CONTROLLERS", strings.Join([]string{
		"FR-Acid Halte-4626",
		"FR-Acid Roaster-4102",
		"FR-CCP Office 1 Temp",
		"FR-CCP Office 2 Temp",
		"FR-Chloride Office-5633",
		"FR-Chloride Pos Security-5633",
		"FR-Pyrite Office-5635",
		"FR-Pyrite Toilet-3104",
		"FR-Pyrite Warehouse-4522",
	}, ","))
	viper.SetDefault("STAFF_PREFIX", "MTI")
	viper.SetDefault("TRANSACTION_KIND", "Valid Entry Access")
	viper.SetDefault("NOTIFY_SENDER", "attendance@example.com")
	viper.SetDefault("NOTIFY_RECIPIENT", "hr@example.com")
	viper.SetDefault("IS_LOCAL_DEV", false)

	// Read in environment variables that match the keys.
	viper.AutomaticEnv()

	err = viper.Unmarshal(&config)
	return
}
