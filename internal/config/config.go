package config

// Config holds app configuration
type Config struct {
	// InputFile is the installer executable to inspect
	InputFile string `mapstructure:"input"`

	// ListFiles prints the decoded entry records instead of just the
	// payload summary
	ListFiles bool `mapstructure:"list_files"`

	// Timezone is applied to displayed timestamps; either an IANA zone
	// name or a fixed offset like "GMT+1" (east positive)
	Timezone string `mapstructure:"timezone"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}
