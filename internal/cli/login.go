package cli

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/al-bashkir/erp-portal/internal/authflow"
	"github.com/al-bashkir/erp-portal/internal/session"
	"github.com/al-bashkir/erp-portal/internal/workspace"
)

// LoginOptions carry values given on the command line. Empty values are
// prompted for.
type LoginOptions struct {
	Username string
	Password string
}

// Login walks the user through the sign-in flow on the terminal:
// username, security phrase and image, then password.
func Login(ctx context.Context, p *Printer, in *Prompter, ws *workspace.Workspace, opts LoginOptions) (session.Principal, error) {
	auth := ws.Auth
	if auth.State() == authflow.Authenticated {
		pr, _ := ws.Session.Principal()
		return pr, &CLIError{
			Summary:    "already signed in as " + pr.Name(),
			Suggestion: "run 'erp-portal logout' to switch users",
			ExitCode:   ExitAuth,
		}
	}

	username := strings.TrimSpace(opts.Username)
	if username == "" {
		var err error
		if username, err = in.Text("Username"); err != nil {
			return session.Principal{}, err
		}
	}
	if username == "" {
		return session.Principal{}, &CLIError{Summary: "username is required", ExitCode: ExitAuth}
	}
	auth.SetUsername(username)

	if !auth.View().DemoMode {
		if err := runChallenge(ctx, p, in, auth); err != nil {
			return session.Principal{}, err
		}
	}

	password := opts.Password
	if password == "" {
		var err error
		if password, err = in.Password("Password"); err != nil {
			return session.Principal{}, err
		}
	}

	if !auth.Login(ctx, username, password) {
		return session.Principal{}, &CLIError{
			Summary:  "sign-in failed",
			Detail:   auth.View().Error,
			ExitCode: ExitAuth,
		}
	}

	pr, _ := ws.Session.Principal()
	p.Success("Signed in as %s (%s)", pr.Name(), pr.Role)
	return pr, nil
}

// runChallenge loads the security challenge and asks for the image until
// it is verified. When the challenge is unavailable the user may retry or
// continue with the password alone.
func runChallenge(ctx context.Context, p *Printer, in *Prompter, auth *authflow.Controller) error {
	for {
		if auth.LoadSecurityData(ctx) {
			return chooseImage(ctx, p, in, auth)
		}

		v := auth.View()
		if v.State != authflow.ChallengeSkipped {
			return &CLIError{Summary: "could not start sign-in", Detail: v.Error, ExitCode: ExitAuth}
		}
		p.Warning("%s", v.Notice)

		retry, err := in.Confirm("Retry the security check?")
		if err != nil {
			return err
		}
		if !retry {
			return nil
		}
	}
}

func chooseImage(ctx context.Context, p *Printer, in *Prompter, auth *authflow.Controller) error {
	v := auth.View()
	p.Header("Security phrase")
	p.Print("%s", v.Phrase)
	if err := RenderImages(p.Out(), v.Images); err != nil {
		return err
	}

	for {
		answer, err := in.Text("Select your image (number or id)")
		if err != nil {
			return err
		}
		id, ok := imageChoice(answer, auth.View())
		if !ok {
			p.Warning("Choose one of the listed images.")
			continue
		}
		if auth.SelectImage(ctx, id) {
			p.Success("Security image verified")
			return nil
		}

		v := auth.View()
		if v.State != authflow.ChallengeShown {
			return errors.New("sign-in attempt was reset")
		}
		p.Warning("%s", v.Error)
	}
}

// imageChoice resolves a 1-based index or an image id.
func imageChoice(answer string, v authflow.View) (string, bool) {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(v.Images) {
			return "", false
		}
		return v.Images[n-1].ID, true
	}
	for _, img := range v.Images {
		if img.ID == answer {
			return img.ID, true
		}
	}
	return "", false
}
