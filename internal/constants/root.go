package constants

const (
	AppName            = "dytgt"
	AppTitle           = "Did You Thank God Today?"
	DefaultKeyringUser = "database-connection"
	DefaultConfigDir   = "~/.config/dytgt"
	DefaultConfigPath  = "~/.config/dytgt/dytgt.db"
	Version            = "v0.1.0"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "dytgt-"
	BackupFileSuffix = ".db"

	// Lock constants
	LockfileName = "dytgt.lock"
)
