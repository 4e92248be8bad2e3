package chefctl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eniac111/chefsetup/internal/types"
)

func TestListCommands(t *testing.T) {
	c := Ctl{}
	assert.Equal(t,
		"command -v chef-server-ctl >/dev/null 2>&1 || exit 127; chef-server-ctl user-list | grep -qxF -- 'alice'",
		c.UserList("alice").Line)
	assert.Equal(t,
		"command -v chef-server-ctl >/dev/null 2>&1 || exit 127; chef-server-ctl org-list | grep -qxF -- 'acme'",
		c.OrgList("acme").Line)

	custom := Ctl{Provider: "/opt/opscode/bin/chef-server-ctl"}
	assert.Equal(t,
		"command -v /opt/opscode/bin/chef-server-ctl >/dev/null 2>&1 || exit 127; /opt/opscode/bin/chef-server-ctl org-list | grep -qxF -- 'acme'",
		custom.OrgList("acme").Line)
}

func TestUserCreate(t *testing.T) {
	cmd := Ctl{}.UserCreate(types.UserSpec{
		Username:  "alice",
		FirstName: "Alice",
		LastName:  "O'Hara",
		Email:     "alice@example.com",
		Password:  "s3cret",
	}, "/root/.chef")

	assert.Equal(t, "create chef user alice", cmd.Name)
	assert.Equal(t,
		`chef-server-ctl user-create 'alice' 'Alice' 'O'\''Hara' 'alice@example.com' 's3cret' --filename '/root/.chef/alice.pem'`,
		cmd.Line)
	assert.NotContains(t, cmd.Name, "s3cret")
}

func TestOrgCommands(t *testing.T) {
	c := Ctl{}
	create := c.OrgCreate(types.OrgSpec{Name: "acme", FullName: "Acme Inc"}, "/out")
	assert.Equal(t, "create chef organization", create.Name)
	assert.Equal(t, "chef-server-ctl org-create 'acme' 'Acme Inc' --filename '/out/acme-validator.pem'", create.Line)

	admin := c.OrgUserAdd("acme", "alice", true)
	assert.Equal(t, "associate alice with the acme org", admin.Name)
	assert.Equal(t, "chef-server-ctl org-user-add 'acme' 'alice' --admin", admin.Line)

	member := c.OrgUserAdd("acme", "bob", false)
	assert.Equal(t, "chef-server-ctl org-user-add 'acme' 'bob'", member.Line)
}
