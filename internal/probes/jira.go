package probes

import (
	"context"
	"net/http"
	"time"

	v3 "github.com/ctreminiom/go-atlassian/v2/jira/v3"

	"github.com/veggerby/ignition/internal/signal"
)

func init() {
	Register("jira", newJira)
}

// JiraConfig mirrors the teacher's jira.ClientConfig: a Jira Cloud
// instance plus basic-auth credentials.
type JiraConfig struct {
	BaseURL  string
	Email    string
	APIToken string
}

func newJira(with map[string]string) (signal.Operation, error) {
	baseURL, err := arg(with, "base_url")
	if err != nil {
		return nil, err
	}
	email, err := arg(with, "email")
	if err != nil {
		return nil, err
	}
	token, err := arg(with, "api_token")
	if err != nil {
		return nil, err
	}
	return JiraReachable(JiraConfig{BaseURL: baseURL, Email: email, APIToken: token}), nil
}

// JiraReachable checks that the Jira Cloud API is reachable and the
// given credentials are valid, grounded on internal/jira/client.go's
// NewClient construction and its MySelf.Details auth-check call.
func JiraReachable(cfg JiraConfig) signal.Operation {
	return func(ctx context.Context) error {
		httpClient := &http.Client{Timeout: 30 * time.Second}
		client, err := v3.New(httpClient, cfg.BaseURL)
		if err != nil {
			return err
		}
		client.Auth.SetBasicAuth(cfg.Email, cfg.APIToken)
		_, _, err = client.MySelf.Details(ctx, nil)
		return err
	}
}
