package providers

import (
	"os"
	"strings"

	"golang.org/x/term"

	"tosctl/internal/structures"
)

// Boolean CI environment variables. An explicit false value overrides
// everything else; a true value marks the environment as CI.
var ciBooleanVars = []string{
	"APPVEYOR",
	"BITRISE_IO",
	"BUDDY",
	"BUILDKITE",
	"CI",
	"CIRCLECI",
	"CIRRUS_CI",
	"CONCOURSE_CI",
	"DRONE",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"SAIL_CI",
	"SEMAPHORE",
	"TF_BUILD",
	"TRAVIS",
	"WERCKER",
	"WOODPECKER_CI",
}

// Presence-based CI environment variables, checked for existence only.
var ciPresenceVars = []string{
	"BAMBOO_BUILDKEY",
	"CODEBUILD_BUILD_ID",
	"HEROKU_TEST_RUN_ID",
	"JENKINS_URL",
	"TEAMCITY_VERSION",
}

// Container runtime signatures found in /proc/self/cgroup.
var containerIndicators = []string{
	"containerd",
	"docker",
	"kubepods",
	"lxc",
	"podman",
}

// Variables that show up in containerized CI jobs that do not set the full
// CI variables. Only meaningful together with a container indicator.
var partialCIVars = []string{
	"AZURE_HTTP_USER_AGENT",
	"BUILD_ID",
	"BUILD_NUMBER",
	"BUILD_URL",
	"BUILDKITE_BUILD_ID",
	"CIRCLE_BUILD_NUM",
	"CIRCLE_PROJECT_REPONAME",
	"GITHUB_JOB",
	"GITHUB_REPOSITORY",
	"GITHUB_WORKFLOW",
	"GITLAB_PROJECT_ID",
	"GITLAB_USER_ID",
	"JOB_NAME",
	"RUNNER_ARCH",
	"RUNNER_OS",
	"WORKSPACE",
}

// NewEnvProvider detects the execution environment once at startup. The
// resulting context is passed into the workflow instead of reading ambient
// state at decision time.
func NewEnvProvider(logger Logger) *structures.EnvContext {
	ctx := &structures.EnvContext{
		CI:          detectCI(),
		Notebook:    os.Getenv("JPY_SESSION_NAME") != "" && os.Getenv("JPY_PARENT_PID") != "",
		Interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
	}
	logger.Debugf(TypeApp, "Environment: ci=%t notebook=%t interactive=%t",
		ctx.CI, ctx.Notebook, ctx.Interactive)
	return ctx
}

func detectCI() bool {
	// an explicit false in any boolean CI variable is a user override
	for _, name := range ciBooleanVars {
		if value, ok := os.LookupEnv(name); ok && value != "" && !boolify(value) {
			return false
		}
	}

	for _, name := range ciBooleanVars {
		if boolify(os.Getenv(name)) {
			return true
		}
	}

	for _, name := range ciPresenceVars {
		if os.Getenv(name) != "" {
			return true
		}
	}

	return inCIContainer()
}

// inCIContainer detects containerized CI jobs that set only partial CI
// variables. Both a container indicator and a partial CI variable must be
// present to avoid false positives on plain containers.
func inCIContainer() bool {
	container := os.Getpid() == 1 || os.Getenv("CONTAINER") != ""

	if !container {
		if data, err := os.ReadFile("/proc/self/cgroup"); err == nil {
			content := string(data)
			for _, indicator := range containerIndicators {
				if strings.Contains(content, indicator) {
					container = true
					break
				}
			}
		}
	}

	if !container {
		return false
	}
	for _, name := range partialCIVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

func boolify(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "y":
		return true
	default:
		return false
	}
}
