package probes

import (
	"context"

	gogitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("gitlab", newGitLab)
}

func newGitLab(with map[string]string) (signal.Operation, error) {
	projectPath, err := arg(with, "project_path")
	if err != nil {
		return nil, err
	}
	token, err := arg(with, "token")
	if err != nil {
		return nil, err
	}
	return GitLabReachable(projectPath, token, with["base_url"]), nil
}

// GitLabReachable checks that a GitLab project is visible with the
// given token, grounded on internal/hosting/gitlab/gitlab.go's client
// construction (token + optional self-hosted base URL).
func GitLabReachable(projectPath, token, baseURL string) signal.Operation {
	return func(ctx context.Context) error {
		opts := []gogitlab.ClientOptionFunc{}
		if baseURL != "" {
			opts = append(opts, gogitlab.WithBaseURL(baseURL))
		}
		client, err := gogitlab.NewClient(token, opts...)
		if err != nil {
			return err
		}
		_, _, err = client.Projects.GetProject(projectPath, nil, gogitlab.WithContext(ctx))
		return err
	}
}
