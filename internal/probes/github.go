package probes

import (
	"context"

	gogithub "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("github", newGitHub)
}

func newGitHub(with map[string]string) (signal.Operation, error) {
	owner, err := arg(with, "owner")
	if err != nil {
		return nil, err
	}
	repo, err := arg(with, "repo")
	if err != nil {
		return nil, err
	}
	return GitHubReachable(owner, repo, with["token"]), nil
}

// GitHubReachable checks that the GitHub API is reachable and that the
// given repository is visible with the supplied token, grounded on
// internal/hosting/github/github.go's authenticated client
// construction and CheckAuth call.
func GitHubReachable(owner, repo, token string) signal.Operation {
	return func(ctx context.Context) error {
		httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		client := gogithub.NewClient(httpClient)
		_, _, err := client.Repositories.Get(ctx, owner, repo)
		return err
	}
}
