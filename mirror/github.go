package mirror

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
)

// checkTarget makes sure the target repository exists and the credential
// can see it before its refs are overwritten by the forced mirror push.
// A push to a mistyped target would otherwise fail late, after the full
// source clone.
func (m *PushMirror) checkTarget(ctx context.Context) error {
	token, err := m.pushToken(ctx)
	if err != nil {
		return err
	}

	owner, name := m.cfg.TargetOwnerRepo()

	client := github.NewClient(nil).WithAuthToken(token)
	_, resp, err := client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("target repository '%s' not found or token has no access to it", m.cfg.Target)
		}
		return err
	}

	return nil
}
