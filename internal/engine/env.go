package engine

import "strings"

// denyPrefixes lists environment variable name prefixes stripped from the
// engine subprocess. The engine runs arbitrary analysis over untrusted diff
// text; cloud credentials, CI metadata, and provider keys have no business
// in its environment.
var denyPrefixes = []string{
	"AWS_",
	"AZURE_",
	"BUILDKITE_",
	"CIRCLE_",
	"CI_",
	"DOCKER_",
	"DRONE_",
	"GCLOUD_",
	"GCP_",
	"GH_",
	"GITHUB_",
	"GITLAB_",
	"GOOGLE_",
	"HEROKU_",
	"JENKINS_",
	"KUBE",
	"NETLIFY_",
	"NPM_",
	"OPENAI_",
	"TRAVIS_",
	"VERCEL_",
}

// allowedNames are exact variable names exempt from the deny list: the
// engine and the hosting-API client cannot function without them.
var allowedNames = map[string]bool{
	"ANTHROPIC_API_KEY": true,
	"GITHUB_TOKEN":      true,
}

// FilterEnv returns env with denied variables removed. extraAllowed names
// survive filtering in addition to the built-in allow list. This runs on
// every spawn; it is a security property of the orchestrator, not a
// configuration option.
func FilterEnv(env []string, extraAllowed []string) []string {
	allowed := make(map[string]bool, len(allowedNames)+len(extraAllowed))
	for name := range allowedNames {
		allowed[name] = true
	}
	for _, name := range extraAllowed {
		allowed[name] = true
	}

	filtered := make([]string, 0, len(env))
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if allowed[name] || !denied(name) {
			filtered = append(filtered, kv)
		}
	}
	return filtered
}

func denied(name string) bool {
	for _, prefix := range denyPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
