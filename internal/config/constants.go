package config

// Default configuration file names
const (
	// DefaultConfigFile is the configuration file looked up in the working directory
	DefaultConfigFile = "policytask.yaml"

	// DefaultEnvFile holds secrets referenced by the configuration
	DefaultEnvFile = ".env"
)

// Default directories
const (
	// DataDir is the base directory for generated task and result files
	DataDir = "data"

	// DefaultTasksDir holds task_<timestamp>_<id8>.md files
	DefaultTasksDir = DataDir + "/tasks"

	// DefaultResultsDir holds <task-stem>_result.md files written by the agent
	DefaultResultsDir = DataDir + "/results"

	// DefaultSkillsDir holds the skill documents referenced by name in task files
	DefaultSkillsDir = "skills"
)

// Remote API defaults
const (
	// DefaultAPIEndpoint is the local Supabase functions endpoint
	DefaultAPIEndpoint = "http://localhost:54321/functions/v1/ai-action"

	// DefaultAPIKeyEnv names the environment variable carrying the action API key
	DefaultAPIKeyEnv = "POLICY_AI_API_KEY"

	// DefaultAuthTokenEnv names the environment variable carrying the bearer token
	DefaultAuthTokenEnv = "POLICY_AI_AUTH_TOKEN"

	// DefaultServerAPIKeyEnv names the environment variable guarding the HTTP API
	DefaultServerAPIKeyEnv = "POLICYTASK_SERVER_API_KEY"
)

// Runtime defaults
const (
	DefaultMaxAgeDays = 7
	DefaultServerPort = 8090
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
)

// File permissions
const (
	// DirPerm is the default permission for directories
	DirPerm = 0755

	// FilePerm is the permission for generated task files
	FilePerm = 0644

	// ConfigFilePerm is the permission for the sample configuration file
	ConfigFilePerm = 0600
)

// Hook continue_on values
const (
	ContinueOnError   = "error"
	ContinueOnAlways  = "always"
	ContinueOnSuccess = "success"

	DefaultHookTimeout = 30 // seconds
)
