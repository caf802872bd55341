// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Commands depend on it instead of *Config so tests can swap values freely.
type Interface interface {
	Logger() LoggerConfig
	Arm() ArmConfig
	Task() TaskConfig
	Input() InputConfig
	Capture() CaptureConfig
	Playback() PlaybackConfig
	Smoothing() SmoothingConfig
	Participant() ParticipantConfig
	Export() ExportConfig
	Store() StoreConfig

	// Setters for values that CLI flags override.
	SetPlaybackFrameRate(int)
	SetPlaybackInterpolate(bool)
	SetSmoothingMethod(string)
	SetSmoothingStrength(float64)
	SetParticipantSeed(int64)
	SetExportOutputDir(string)
	SetTaskAttempts(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	ArmCfg         ArmConfig         `mapstructure:"arm" yaml:"arm"`
	TaskCfg        TaskConfig        `mapstructure:"task" yaml:"task"`
	InputCfg       InputConfig       `mapstructure:"input" yaml:"input"`
	CaptureCfg     CaptureConfig     `mapstructure:"capture" yaml:"capture"`
	PlaybackCfg    PlaybackConfig    `mapstructure:"playback" yaml:"playback"`
	SmoothingCfg   SmoothingConfig   `mapstructure:"smoothing" yaml:"smoothing"`
	ParticipantCfg ParticipantConfig `mapstructure:"participant" yaml:"participant"`
	ExportCfg      ExportConfig      `mapstructure:"export" yaml:"export"`
	StoreCfg       StoreConfig       `mapstructure:"store" yaml:"store"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig           { return c.LoggerCfg }
func (c *Config) Arm() ArmConfig                 { return c.ArmCfg }
func (c *Config) Task() TaskConfig               { return c.TaskCfg }
func (c *Config) Input() InputConfig             { return c.InputCfg }
func (c *Config) Capture() CaptureConfig         { return c.CaptureCfg }
func (c *Config) Playback() PlaybackConfig       { return c.PlaybackCfg }
func (c *Config) Smoothing() SmoothingConfig     { return c.SmoothingCfg }
func (c *Config) Participant() ParticipantConfig { return c.ParticipantCfg }
func (c *Config) Export() ExportConfig           { return c.ExportCfg }
func (c *Config) Store() StoreConfig             { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetPlaybackFrameRate(r int)     { c.PlaybackCfg.FrameRate = r }
func (c *Config) SetPlaybackInterpolate(b bool)  { c.PlaybackCfg.Interpolate = b }
func (c *Config) SetSmoothingMethod(m string)    { c.SmoothingCfg.Method = m }
func (c *Config) SetSmoothingStrength(s float64) { c.SmoothingCfg.Strength = s }
func (c *Config) SetParticipantSeed(seed int64)  { c.ParticipantCfg.Seed = seed }
func (c *Config) SetExportOutputDir(dir string)  { c.ExportCfg.OutputDir = dir }
func (c *Config) SetTaskAttempts(n int)          { c.TaskCfg.Attempts = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names used for each log level on the console.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ArmConfig is the fixed arm geometry, in canvas pixels.
type ArmConfig struct {
	ShoulderX      float64 `mapstructure:"shoulder_x" yaml:"shoulder_x"`
	ShoulderY      float64 `mapstructure:"shoulder_y" yaml:"shoulder_y"`
	UpperArmLength float64 `mapstructure:"upper_arm_length" yaml:"upper_arm_length"`
	LowerArmLength float64 `mapstructure:"lower_arm_length" yaml:"lower_arm_length"`
}

// TaskConfig describes the reaching task given to participants.
type TaskConfig struct {
	StartX       float64 `mapstructure:"start_x" yaml:"start_x"`
	StartY       float64 `mapstructure:"start_y" yaml:"start_y"`
	TargetX      float64 `mapstructure:"target_x" yaml:"target_x"`
	TargetY      float64 `mapstructure:"target_y" yaml:"target_y"`
	TargetRadius float64 `mapstructure:"target_radius" yaml:"target_radius"`
	Attempts     int     `mapstructure:"attempts" yaml:"attempts"`
	// Timeout bounds a single simulated attempt.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// InputConfig tunes pointer handling.
type InputConfig struct {
	GrabRadius      float64 `mapstructure:"grab_radius" yaml:"grab_radius"`
	MinMoveDistance float64 `mapstructure:"min_move_distance" yaml:"min_move_distance"`
	AutoRelease     bool    `mapstructure:"auto_release" yaml:"auto_release"`
}

// CaptureConfig tunes recording.
type CaptureConfig struct {
	AngleEpsilon float64 `mapstructure:"angle_epsilon" yaml:"angle_epsilon"`
	FrameRate    int     `mapstructure:"frame_rate" yaml:"frame_rate"`
}

// PlaybackConfig tunes replay.
type PlaybackConfig struct {
	FrameRate   int  `mapstructure:"frame_rate" yaml:"frame_rate"`
	Interpolate bool `mapstructure:"interpolate" yaml:"interpolate"`
}

// SmoothingConfig selects the post-processing filter.
type SmoothingConfig struct {
	Method   string  `mapstructure:"method" yaml:"method"`
	Strength float64 `mapstructure:"strength" yaml:"strength"`
}

// ParticipantConfig parameterises the synthetic participant used for
// headless recording.
type ParticipantConfig struct {
	ID              string  `mapstructure:"id" yaml:"id"`
	FittsA          float64 `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB          float64 `mapstructure:"fitts_b" yaml:"fitts_b"`
	TargetWidth     float64 `mapstructure:"target_width" yaml:"target_width"`
	TimingJitter    float64 `mapstructure:"timing_jitter" yaml:"timing_jitter"`
	SampleRate      float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Curvature       float64 `mapstructure:"curvature" yaml:"curvature"`
	PerlinAmplitude float64 `mapstructure:"perlin_amplitude" yaml:"perlin_amplitude"`
	PerlinFrequency float64 `mapstructure:"perlin_frequency" yaml:"perlin_frequency"`
	TremorAmplitude float64 `mapstructure:"tremor_amplitude" yaml:"tremor_amplitude"`
	Seed            int64   `mapstructure:"seed" yaml:"seed"`
}

// ExportConfig controls where recordings are written.
type ExportConfig struct {
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`
	FilenamePrefix string `mapstructure:"filename_prefix" yaml:"filename_prefix"`
}

// StoreConfig points at the optional PostgreSQL database sessions are
// persisted to. An empty URL disables persistence.
type StoreConfig struct {
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// NewDefaultConfig creates a new configuration with default values applied.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "armtrace")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Arm --
	v.SetDefault("arm.shoulder_x", 400.0)
	v.SetDefault("arm.shoulder_y", 300.0)
	v.SetDefault("arm.upper_arm_length", 150.0)
	v.SetDefault("arm.lower_arm_length", 130.0)

	// -- Task --
	v.SetDefault("task.start_x", 650.0)
	v.SetDefault("task.start_y", 300.0)
	v.SetDefault("task.target_x", 450.0)
	v.SetDefault("task.target_y", 150.0)
	v.SetDefault("task.target_radius", 20.0)
	v.SetDefault("task.attempts", 5)
	v.SetDefault("task.timeout", "10s")

	// -- Input --
	v.SetDefault("input.grab_radius", 25.0)
	v.SetDefault("input.min_move_distance", 0.0)
	v.SetDefault("input.auto_release", true)

	// -- Capture --
	v.SetDefault("capture.angle_epsilon", 1e-4)
	v.SetDefault("capture.frame_rate", 60)

	// -- Playback --
	v.SetDefault("playback.frame_rate", 60)
	v.SetDefault("playback.interpolate", false)

	// -- Smoothing --
	v.SetDefault("smoothing.method", "gaussian")
	v.SetDefault("smoothing.strength", 0.0)

	// -- Participant --
	v.SetDefault("participant.id", "")
	v.SetDefault("participant.fitts_a", 150.0)
	v.SetDefault("participant.fitts_b", 180.0)
	v.SetDefault("participant.target_width", 40.0)
	v.SetDefault("participant.timing_jitter", 0.15)
	v.SetDefault("participant.sample_rate", 60.0)
	v.SetDefault("participant.curvature", 0.4)
	v.SetDefault("participant.perlin_amplitude", 2.5)
	v.SetDefault("participant.perlin_frequency", 0.8)
	v.SetDefault("participant.tremor_amplitude", 0.6)
	v.SetDefault("participant.seed", 1)

	// -- Export --
	v.SetDefault("export.output_dir", ".")
	v.SetDefault("export.filename_prefix", "armtrace")

	// -- Store --
	v.SetDefault("store.database_url", "")
}

// EnvPrefix namespaces environment overrides, e.g. ARMTRACE_ARM_UPPER_ARM_LENGTH.
const EnvPrefix = "ARMTRACE"

// BindEnv lets environment variables override any key that has a default.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values the kinematics and timing code assume.
func (c *Config) Validate() error {
	if c.ArmCfg.UpperArmLength <= 0 || c.ArmCfg.LowerArmLength <= 0 {
		return fmt.Errorf("arm segment lengths must be positive")
	}
	if c.TaskCfg.TargetRadius <= 0 {
		return fmt.Errorf("task.target_radius must be positive")
	}
	if c.TaskCfg.Attempts <= 0 {
		return fmt.Errorf("task.attempts must be a positive integer")
	}
	if c.InputCfg.GrabRadius <= 0 {
		return fmt.Errorf("input.grab_radius must be positive")
	}
	if c.InputCfg.MinMoveDistance < 0 {
		return fmt.Errorf("input.min_move_distance cannot be negative")
	}
	if c.CaptureCfg.AngleEpsilon <= 0 {
		return fmt.Errorf("capture.angle_epsilon must be positive")
	}
	if c.CaptureCfg.FrameRate <= 0 || c.PlaybackCfg.FrameRate <= 0 {
		return fmt.Errorf("frame rates must be positive integers")
	}
	if err := c.SmoothingCfg.Validate(); err != nil {
		return fmt.Errorf("smoothing configuration invalid: %w", err)
	}
	if c.ParticipantCfg.SampleRate <= 0 {
		return fmt.Errorf("participant.sample_rate must be positive")
	}
	return nil
}

// Validate checks the method name and the strength range.
func (s *SmoothingConfig) Validate() error {
	switch strings.ToLower(s.Method) {
	case "gaussian", "moving_average", "moving-average":
	default:
		return fmt.Errorf("unknown method %q", s.Method)
	}
	if s.Strength < 0 || s.Strength > 100 {
		return fmt.Errorf("strength must be between 0 and 100, got %v", s.Strength)
	}
	return nil
}
