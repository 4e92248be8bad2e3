// Package chefctl builds the chef-server-ctl command lines used to probe and
// change server state. Every function here is pure.
package chefctl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/eniac111/chefsetup/internal/modules/shell"
	"github.com/eniac111/chefsetup/internal/types"
)

// DefaultProvider is the server management binary.
const DefaultProvider = "chef-server-ctl"

// Ctl renders commands for one provider binary.
type Ctl struct {
	Provider string
}

func (c Ctl) provider() string {
	if p := strings.TrimSpace(c.Provider); p != "" {
		return p
	}
	return DefaultProvider
}

// ExitProviderMissing is the status listing commands exit with when the
// provider binary cannot be found.
const ExitProviderMissing = 127

// UserList exits 0 iff username is listed verbatim as a whole line.
func (c Ctl) UserList(username string) shell.Command {
	return shell.Command{
		Name: "probe chef user " + username,
		Line: c.listLine("user-list", username),
	}
}

// OrgList exits 0 iff org is listed verbatim as a whole line.
func (c Ctl) OrgList(org string) shell.Command {
	return shell.Command{
		Name: "probe chef organization " + org,
		Line: c.listLine("org-list", org),
	}
}

// listLine guards the pipeline with a lookup of the provider, since the
// pipeline's status is grep's and would hide a missing binary.
func (c Ctl) listLine(sub, name string) string {
	p := c.provider()
	return fmt.Sprintf("command -v %s >/dev/null 2>&1 || exit %d; %s %s | grep -qxF -- %s",
		p, ExitProviderMissing, p, sub, shell.Quote(name))
}

// UserCreate writes the user's private key to <outputDir>/<username>.pem.
func (c Ctl) UserCreate(u types.UserSpec, outputDir string) shell.Command {
	args := []string{
		c.provider(), "user-create",
		shell.Quote(u.Username),
		shell.Quote(u.FirstName),
		shell.Quote(u.LastName),
		shell.Quote(u.Email),
		shell.Quote(u.Password),
		"--filename", shell.Quote(filepath.Join(outputDir, u.Username+".pem")),
	}
	return shell.Command{
		Name: "create chef user " + u.Username,
		Line: strings.Join(args, " "),
	}
}

// OrgCreate writes the validator key to <outputDir>/<name>-validator.pem.
func (c Ctl) OrgCreate(o types.OrgSpec, outputDir string) shell.Command {
	args := []string{
		c.provider(), "org-create",
		shell.Quote(o.Name),
		shell.Quote(o.FullName),
		"--filename", shell.Quote(filepath.Join(outputDir, o.Name+"-validator.pem")),
	}
	return shell.Command{
		Name: "create chef organization",
		Line: strings.Join(args, " "),
	}
}

// OrgUserAdd links username to org, as an admin when admin is set.
func (c Ctl) OrgUserAdd(org, username string, admin bool) shell.Command {
	line := fmt.Sprintf("%s org-user-add %s %s", c.provider(), shell.Quote(org), shell.Quote(username))
	if admin {
		line += " --admin"
	}
	return shell.Command{
		Name: fmt.Sprintf("associate %s with the %s org", username, org),
		Line: line,
	}
}
